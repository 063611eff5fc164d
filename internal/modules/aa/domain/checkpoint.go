package domain

import "strconv"

// Checkpoints live in the cookie under this key, one map of position-index
// to step name per pipeline. Matching on both index and name prevents a
// silent skip when the pipeline composition changes between invocations.
const checkpointsKey = "checkpoints"

// StepDone reports whether the step at index of the named pipeline already
// completed in an earlier invocation of this session.
func StepDone(cookie Cookie, pipeline string, index int, name string) bool {
	all := cookie.SubMap(checkpointsKey)
	if all == nil {
		return false
	}
	steps, ok := all[pipeline].(map[string]any)
	if !ok {
		return false
	}
	done, _ := steps[strconv.Itoa(index)].(string)
	return done == name
}

// MarkStepDone records completion of the step at index of the named pipeline.
func MarkStepDone(cookie Cookie, pipeline string, index int, name string) {
	all := cookie.EnsureSubMap(checkpointsKey)
	steps, ok := all[pipeline].(map[string]any)
	if !ok {
		steps = map[string]any{}
		all[pipeline] = steps
	}
	steps[strconv.Itoa(index)] = name
}
