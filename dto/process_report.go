package dto

// ProcessCycleResponse is returned by the manual trigger endpoint.
type ProcessCycleResponse struct {
	EmailsProcessed int      `json:"emailsProcessed"`
	StorageKeys     []string `json:"storageKeys"`
}
