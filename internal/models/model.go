package models

type ModelMetrics struct {
	ModelPath                 string             `json:"model_path"`
	ModelExists               bool               `json:"model_exists"`
	ModelLoaded               bool               `json:"model_loaded"`
	WeightsSizeMB             float64            `json:"weights_size_mb"`
	Metrics                   map[string]float64 `json:"metrics"`
	RealShelfProxyMAP         *float64           `json:"real_shelf_proxy_mAP,omitempty"`
	SuccessCriteriaEvaluation map[string]any     `json:"success_criteria_evaluation,omitempty"`
	TechStack                 []string           `json:"tech_stack,omitempty"`
	LastUpdated               *string            `json:"last_updated,omitempty"`
	RunName                   string             `json:"run_name,omitempty"`
}

type BackendHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelExists bool   `json:"model_exists"`
	ModelPath   string `json:"model_path"`
}
