package vtop

import (
	"testing"

	"vtop-backend/internal/vtop/vtoptest"
	"vtop-backend/lib/restyutil"
	"vtop-backend/lib/telemetry"
)

type testClient struct {
	*Client
	solver   *vtoptest.Solver
	sink     *restyutil.MemoryOutput
	recorder *telemetry.Recorder
}

func newTestClient(t testing.TB, portal *vtoptest.Portal) testClient {
	solver := &vtoptest.Solver{}
	sink := &restyutil.MemoryOutput{}
	recorder := newRecorder()

	client, err := NewClient(NewCredentials(vtoptest.Username, vtoptest.Password), ClientOptions{
		Config: Config{
			BaseUrl:            portal.URL(),
			VerifyCertificates: true,
		},
		Solver: solver,
		Sink:   sink,
		Tel:    recorder,
	})
	if err != nil {
		t.Fatal(err)
	}
	return testClient{
		Client:   client,
		solver:   solver,
		sink:     sink,
		recorder: recorder,
	}
}

func newRecorder() *telemetry.Recorder {
	return &telemetry.Recorder{}
}
