// Package handler runs one analysis per Lambda invocation.
package handler

import (
	"context"
	"log"

	appanalysis "github.com/bryanwahyu/polycode-insight/internal/application/analysis"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// Request is the analyze-code event. Code and SourceCode are aliases.
type Request struct {
	Code            string   `json:"code,omitempty"`
	SourceCode      string   `json:"sourceCode,omitempty"`
	SourceLanguage  string   `json:"sourceLanguage"`
	TargetLanguages []string `json:"targetLanguages"`
	Tenant          string   `json:"tenant,omitempty"`
}

// Response is the submission record on success, or the error triple on failure.
type Response struct {
	*domain.Submission
	Error    string           `json:"error,omitempty"`
	Kind     domain.ErrorKind `json:"kind,omitempty"`
	Category domain.Category  `json:"category,omitempty"`
}

// DefaultTenant is used when the event names none.
const DefaultTenant = "lambda"

func (r Request) analysisRequest() domain.AnalysisRequest {
	code := r.SourceCode
	if code == "" {
		code = r.Code
	}
	return domain.AnalysisRequest{
		SourceCode:      code,
		SourceLanguage:  r.SourceLanguage,
		TargetLanguages: r.TargetLanguages,
	}
}

// Handle processes one analysis event. Failures are reported in the Response, so the
// invocation itself only errors on a programming fault.
func Handle(ctx context.Context, svc *appanalysis.Service, req Request) (*Response, error) {
	tenant := req.Tenant
	if tenant == "" {
		tenant = DefaultTenant
	}

	rec, err := svc.Analyze(ctx, tenant, req.analysisRequest(), nil)
	if err != nil {
		cat, advice := domain.Advise(err)
		log.Printf("[Handler] analysis failed id=%s kind=%s: %v", rec.ID, domain.KindOf(err), err)
		return &Response{Error: advice, Kind: domain.KindOf(err), Category: cat}, nil
	}
	return &Response{Submission: rec}, nil
}
