package httpdto

// Response is the envelope for every JSON body the API writes. Data is
// always present so clients can rely on the key; it is null for
// acknowledgements and errors.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// NewAckResponse acknowledges an accepted command that returns nothing.
func NewAckResponse() Response[any] {
	return Response[any]{Success: true}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{Error: err, Code: code}
}
