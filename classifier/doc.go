// Package classifier turns raw model scores into typed domain results.
//
// One classifier exists per domain. Each delegates scoring to a
// modelserver.Server, calibrates the scores into a confidence, and maps
// the winning class to the domain's label set. Model failures are handled
// per domain policy: the mental-state, sleep-stage, and motor-imagery
// classifiers emit a degraded neutral result so the stream never stalls,
// while the seizure-risk classifier returns a hard error for the pipeline
// to escalate as an alert.
package classifier
