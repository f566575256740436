package harness

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Module is the emitted module name.
	Module string `json:"module"`

	// Text is the printed LLVM module. Failed functions are absent.
	Text string `json:"text"`

	// Functions lists every function of the document in order.
	Functions []FunctionOutcome `json:"functions"`

	// DocumentCodes holds validation error codes (E1xx) of the document.
	DocumentCodes []string `json:"document_codes,omitempty"`
}

// FunctionOutcome is one function's compile result.
type FunctionOutcome struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
	// Code is the error code when compilation failed.
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Functions: []FunctionOutcome{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Compiled returns the functions that compiled.
func (r *Result) Compiled() []FunctionOutcome {
	var out []FunctionOutcome
	for _, f := range r.Functions {
		if f.Code == "" {
			out = append(out, f)
		}
	}
	return out
}

func (r *Result) function(name string) (FunctionOutcome, bool) {
	for _, f := range r.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionOutcome{}, false
}
