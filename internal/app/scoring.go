package app

import "time"

// baseAward is the flat score for any correct answer; speed adds one
// point per whole second left on the question clock.
const baseAward = 30

// Score computes the points for a submission. Wrong answers score
// nothing. A nil deadline yields the base award only; answering after
// the deadline never goes negative.
func Score(questionEndTime *int64, answeredAt time.Time, correct bool) int {
	if !correct {
		return 0
	}
	var secondsLeft int64
	if questionEndTime != nil {
		secondsLeft = (*questionEndTime - answeredAt.UnixMilli()) / 1000
		if secondsLeft < 0 {
			secondsLeft = 0
		}
	}
	return baseAward + int(secondsLeft)
}
