package constants

// ReleaseMethod 发布来源
const (
	ReleaseMethodUpload   = "Upload"
	ReleaseMethodPromote  = "Promote"
	ReleaseMethodRollback = "Rollback"
)

// LabelPrefix 发布标签前缀, 标签格式 v<N>
const LabelPrefix = "v"

// RolloutFull 全量发布
const RolloutFull = 100
