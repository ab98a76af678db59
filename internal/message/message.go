package message

import "time"

// DeploymentResult describes a completed deployment. It is published to the
// notification queue when one is configured.
type DeploymentResult struct {
	App           string    `json:"app"`
	ResourceGroup string    `json:"resource_group"`
	Environment   string    `json:"environment"`
	Image         string    `json:"image"`
	Created       bool      `json:"created"`
	FinishedAt    time.Time `json:"finished_at"`
}
