package core

import "time"

// Stage names one step of the answering pipeline.
type Stage string

const (
	StageClassify   Stage = "classify"
	StageRetrieve   Stage = "retrieve"
	StageVerify     Stage = "verify"
	StageSynthesize Stage = "synthesize"
	StageCite       Stage = "cite"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageClassify, StageRetrieve, StageVerify, StageSynthesize, StageCite}

// StageResult is the terminal state of one stage. It is stored once and never
// modified.
type StageResult struct {
	Stage         Stage
	Success       bool
	Data          any
	Confidence    float64
	ExecutionTime time.Duration
	Err           error
	SkipReason    string
}

// Skipped reports whether the stage was never invoked.
func (r *StageResult) Skipped() bool {
	return r.SkipReason != ""
}

// ExecutionTimeMs returns the stage duration in whole milliseconds.
func (r *StageResult) ExecutionTimeMs() int64 {
	return r.ExecutionTime.Milliseconds()
}
