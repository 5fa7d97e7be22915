package vtop

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"vtop-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_captcha_solve = "captcha.solve"

// CaptchaSolver turns a captcha image into its answer. The answer is treated
// as an opaque, case-sensitive string.
type CaptchaSolver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// HTTPSolver delegates to a remote solving service that accepts
// {"imgstring": <url-safe base64 of the image>} and replies with the answer
// as the raw response body.
type HTTPSolver struct {
	http *resty.Client
	url  string
	tel  telemetry.API
}

func NewHTTPSolver(endpoint string, timeout time.Duration, tel telemetry.API) HTTPSolver {
	client := resty.New()
	client.SetTimeout(timeout)
	telemetry.InstrumentResty(client, tel)

	return HTTPSolver{
		http: client,
		url:  endpoint,
		tel:  tel,
	}
}

type solveRequest struct {
	Imgstring string `json:"imgstring"`
}

func (s HTTPSolver) Solve(ctx context.Context, image []byte) (string, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetBody(solveRequest{
			Imgstring: base64.URLEncoding.EncodeToString(image),
		}).
		Post(s.url)
	if err != nil {
		s.tel.ReportBroken(report_captcha_solve, fmt.Errorf("request: %w", err))
		return "", fmt.Errorf("%w: %w", ErrSolverUnreachable, err)
	}
	if !res.IsSuccess() {
		s.tel.ReportBroken(report_captcha_solve, fmt.Errorf("unexpected status"), res.Status())
		return "", fmt.Errorf("%w: status %s", ErrSolverUnreachable, res.Status())
	}
	return string(res.Body()), nil
}

// SolverFunc adapts a function to CaptchaSolver.
type SolverFunc func(ctx context.Context, image []byte) (string, error)

func (f SolverFunc) Solve(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
