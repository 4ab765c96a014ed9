package harness

import (
	"fmt"
	"slices"
	"sort"
)

// checkExpect compares the declared expectations with the final state and
// returns one message per mismatch.
func checkExpect(want Expect, got FinalState) []string {
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expect.%s: got %v, want %v", field, got, want))
	}

	if want.Points != nil && *want.Points != got.Points {
		mismatch("points", *want.Points, got.Points)
	}
	if want.Level != nil && *want.Level != got.Level {
		mismatch("level", *want.Level, got.Level)
	}
	if want.User != nil && *want.User != got.User {
		mismatch("user", *want.User, got.User)
	}
	if want.Challenges != nil && !sameSet(want.Challenges, got.Challenges) {
		mismatch("challenges", want.Challenges, got.Challenges)
	}
	for kind, n := range want.Counters {
		if got.Counters[kind] != n {
			mismatch("counters."+kind, n, got.Counters[kind])
		}
	}
	if want.Achievements != nil && !sameSet(want.Achievements, got.Achievements) {
		mismatch("achievements", want.Achievements, got.Achievements)
	}
	// Notification order is part of the contract.
	if want.Notifications != nil && !slices.Equal(want.Notifications, got.Notifications) {
		mismatch("notifications", want.Notifications, got.Notifications)
	}
	if want.Labs != nil && !sameSet(want.Labs, got.Labs) {
		mismatch("labs", want.Labs, got.Labs)
	}
	if want.RemotePoints != nil && *want.RemotePoints != got.RemotePoints {
		mismatch("remote_points", *want.RemotePoints, got.RemotePoints)
	}
	if want.RemoteAwards != nil && !sameSet(want.RemoteAwards, got.RemoteAwards) {
		mismatch("remote_awards", want.RemoteAwards, got.RemoteAwards)
	}
	return errs
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}
