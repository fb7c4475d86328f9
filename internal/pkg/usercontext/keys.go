package usercontext

// Locals keys shared by middlewares and controllers
const (
	KeyIdentity = "USER_IDENTITY"
)

// Request headers set by the identity gateway in front of the service
const (
	HeaderEmail         = "X-User-Email"
	HeaderDisplayName   = "X-User-Name"
	HeaderPhotoURL      = "X-User-Photo"
	HeaderGatewaySecret = "X-Gateway-Secret"
)
