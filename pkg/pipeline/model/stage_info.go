package model

type stageType string

const (
	StartStageType    stageType = "start"
	EndStageType      stageType = "end"
	ExternalStageType stageType = "external"
	InternalStageType stageType = "internal"
)

// StageInfo describes a stage to the pipeline options.
type StageInfo struct {
	Type    stageType
	Name    string
	Program string
	Index   int
}

var (
	StartStage = &StageInfo{Type: StartStageType, Name: "start", Index: -1}
	EndStage   = &StageInfo{Type: EndStageType, Name: "end", Index: -1}
)
