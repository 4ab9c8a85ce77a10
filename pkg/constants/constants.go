package constants

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
)

// JWT类型
const (
	JWTTypeAccess = "access"
)

// Context Key
const (
	CtxKeyUsername = "username"
)

// 默认部署环境, 创建应用时自动生成
const (
	DeploymentStaging    = "Staging"
	DeploymentProduction = "Production"
)

