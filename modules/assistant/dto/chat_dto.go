package dto

// ChatTurn is one prior message of the conversation, supplied by the caller.
type ChatTurn struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Tool    *ToolTurnInfo `json:"tool,omitempty"`
}

// ToolTurnInfo is the optional structured record of a tool turn.
type ToolTurnInfo struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
}

type ChatRequest struct {
	Message    string     `json:"message"`
	History    []ChatTurn `json:"history"`
	TenantCode string     `json:"tenantCode"`
	UserID     string     `json:"userId,omitempty"`
	UserName   string     `json:"userName,omitempty"`
	UserRole   string     `json:"userRole,omitempty"`
}

type ChatResponse struct {
	Reply   string    `json:"reply"`
	Replies []string  `json:"replies"`
	Source  string    `json:"source"`
	Debug   ChatDebug `json:"debug"`
}

type ChatDebug struct {
	Tools []ToolTrace `json:"tools"`
}

// ToolTrace is the diagnostic record of one tool invocation.
type ToolTrace struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Summary   string         `json:"summary"`
}
