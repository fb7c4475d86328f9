package apiv1

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}
