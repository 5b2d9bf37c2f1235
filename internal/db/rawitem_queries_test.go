package db

import "testing"

func TestCommunityEngagementEligible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		views        int64
		comments     int64
		viewFloor    int64
		commentFloor int64
		want         bool
	}{
		{name: "both floors disabled passes everything", views: 0, comments: 0, want: true},
		{name: "meets view floor", views: 5000, comments: 0, viewFloor: 5000, commentFloor: 50, want: true},
		{name: "meets comment floor", views: 10, comments: 80, viewFloor: 5000, commentFloor: 50, want: true},
		{name: "meets neither floor", views: 10, comments: 10, viewFloor: 5000, commentFloor: 50, want: false},
		{name: "zero comment floor keeps view floor active", views: 10, comments: 1000, viewFloor: 5000, commentFloor: 0, want: false},
		{name: "zero view floor keeps comment floor active", views: 100000, comments: 10, viewFloor: 0, commentFloor: 50, want: false},
		{name: "single active floor met", views: 6000, comments: 0, viewFloor: 5000, commentFloor: 0, want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := CommunityEngagementEligible(tc.views, tc.comments, tc.viewFloor, tc.commentFloor)
			if got != tc.want {
				t.Fatalf("CommunityEngagementEligible(%d, %d, %d, %d) = %t, want %t",
					tc.views, tc.comments, tc.viewFloor, tc.commentFloor, got, tc.want)
			}
		})
	}
}
