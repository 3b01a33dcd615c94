package oauth

// ElicitationRequiredCode is the reserved JSON-RPC error code other
// components key on to recognize an elicitation suspension.
const ElicitationRequiredCode = -32001

// ElicitationData identifies the pending elicitation in the wire payload.
type ElicitationData struct {
	URL           string   `json:"url"`
	ElicitationID string   `json:"elicitationId"`
	Provider      string   `json:"provider"`
	Scopes        []string `json:"scopes"`
}

// JSONRPCErrorBody is the error member of a JSON-RPC response.
type JSONRPCErrorBody struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    ElicitationData `json:"data"`
}

// JSONRPCError is the wire-level shape of an elicitation suspension:
// {"error":{"code":-32001,"message":...,"data":{...}}}.
type JSONRPCError struct {
	Error JSONRPCErrorBody `json:"error"`
}

// ToJSONRPC converts the typed suspension signal into its wire contract.
func ToJSONRPC(e *ElicitationRequiredError) JSONRPCError {
	return JSONRPCError{Error: JSONRPCErrorBody{
		Code:    ElicitationRequiredCode,
		Message: e.Message,
		Data: ElicitationData{
			URL:           e.AuthorizationURL,
			ElicitationID: e.ElicitationID,
			Provider:      e.Provider,
			Scopes:        e.Scopes,
		},
	}}
}
