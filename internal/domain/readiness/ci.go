package readiness

// CIConfidence scores check results from 0 to 100. No checks at all is
// neutral (50); mixed results weigh a failure at -50 and a skip at -20.
func CIConfidence(passed, failed, skipped int) int {
	total := passed + failed + skipped

	switch {
	case total == 0:
		return 50
	case passed == 0 && failed > 0:
		return 0
	case failed == 0 && passed > 0:
		return 100
	}

	// Integer division truncates toward zero, matching int() of the weighted rate.
	score := (passed*100 - failed*50 - skipped*20) / total

	return max(0, min(100, score))
}
