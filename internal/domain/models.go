package domain

// PromptRequest is the client payload accepted by the relay.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateRequest is the body sent to the inference server's generate endpoint.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse is the generated text returned by the inference server.
// It is handed back to the client in the same shape.
type GenerateResponse struct {
	Response string `json:"response"`
}
