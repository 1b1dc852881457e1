package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rabbitmq/amqp091-go"

	"github.com/regioflex/regioflex/internal/storage"
	"github.com/regioflex/regioflex/pkg/leaselock"
	"github.com/regioflex/regioflex/pkg/logger"
	"github.com/regioflex/regioflex/pkg/solver"
	"github.com/regioflex/regioflex/pkg/store"
)

// SolveJobMsg is one solve job: the registry id of the scenario dump to
// solve.
type SolveJobMsg struct {
	Message    string `json:"message"`
	ScenarioID string `json:"scenario_id"`
}

// SolveDoneMsg is published to the pubsub exchange when a job finishes.
// ResultID points at the new dump carrying the results; on failure it is
// empty and Error explains why.
type SolveDoneMsg struct {
	ScenarioID string `json:"scenario_id"`
	ResultID   string `json:"result_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PublishSolveJob enqueues a solve job for a stored scenario.
func PublishSolveJob(ch *amqp091.Channel, scenarioID string) error {
	msg, err := json.Marshal(SolveJobMsg{Message: "solve scenario", ScenarioID: scenarioID})
	if err != nil {
		return fmt.Errorf("failed to marshal solve job: %w", err)
	}
	return PublishFIFO(ch, SolveQueue, msg)
}

// ProcessSolveMessage handles one solve job: load the dump, solve it under
// a per-scenario lease, store a new dump with results, announce the
// outcome. A returned error sends the message into the retry/dead-letter
// path; a busy lease is an error too, so redeliveries back off until the
// running solve finishes.
func ProcessSolveMessage(
	ctx context.Context,
	ch *amqp091.Channel,
	st store.ScenarioStore,
	s solver.Solver,
	locks *leaselock.Client,
	archive *s3.Client,
	msgBody string,
) error {
	var job SolveJobMsg
	if err := json.Unmarshal([]byte(msgBody), &job); err != nil {
		return fmt.Errorf("failed to unmarshal solve job: %w", err)
	}
	if job.ScenarioID == "" {
		return fmt.Errorf("solve job without scenario id")
	}

	return locks.WithLease(ctx, "scenario:"+job.ScenarioID, leaselock.Options{}, func(ctx context.Context) error {
		return solveScenario(ctx, ch, st, s, archive, job)
	})
}

func solveScenario(
	ctx context.Context,
	ch *amqp091.Channel,
	st store.ScenarioStore,
	s solver.Solver,
	archive *s3.Client,
	job SolveJobMsg,
) error {
	sc, err := st.Load(ctx, job.ScenarioID)
	if err != nil {
		return fmt.Errorf("failed to load scenario %q: %w", job.ScenarioID, err)
	}
	logger.Info("[Solve] Processing scenario", "id", job.ScenarioID, "name", sc.Name())

	if err := solver.Run(ctx, s, sc); err != nil {
		announce(ch, SolveDoneMsg{ScenarioID: job.ScenarioID, Error: err.Error()})
		return err
	}

	resultID, err := st.Save(ctx, sc)
	if err != nil {
		return fmt.Errorf("failed to store solved scenario %q: %w", job.ScenarioID, err)
	}

	if archive != nil {
		if blob, err := sc.Dump(); err == nil {
			if err := storage.PutDump(ctx, archive, resultID+".dump.gz", blob); err != nil {
				logger.Error("[Solve] Failed to archive dump", "result_id", resultID, "err", err)
			}
		}
	}

	announce(ch, SolveDoneMsg{ScenarioID: job.ScenarioID, ResultID: resultID})
	logger.Info("[Solve] Scenario solved", "id", job.ScenarioID, "result_id", resultID)
	return nil
}

func announce(ch *amqp091.Channel, msg SolveDoneMsg) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("[Solve] Failed to marshal status message", "err", err)
		return
	}
	if err := PublishTopic(ch, "solve.done", data); err != nil {
		logger.Error("[Solve] Failed to publish status message", "err", err)
	}
}
