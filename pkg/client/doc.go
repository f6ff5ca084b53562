// Package client provides a Go SDK for the task queue API: a hand-written
// HTTP client plus a worker pool that fetches, executes, and reports tasks.
//
// # Basic Usage
//
//	c := client.New("http://localhost:8080", client.WithAPIKey("operator-key"))
//	queue, err := c.CreateQueue(ctx, "emails", "hunter2", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	qc := c.Queue("emails", "hunter2")
//	t, err := qc.SubmitTask(ctx, client.SubmitTaskRequest{TaskName: "send_email"})
//
// # Worker Pool
//
//	pool := client.NewPool(qc, client.PoolConfig{Concurrency: 10})
//	pool.RegisterHandler("send_email", func(ctx context.Context, t *task.Task) (map[string]interface{}, error) {
//	    return map[string]interface{}{"sent": true}, nil
//	})
//	pool.Start(ctx)
//	defer pool.Stop(ctx)
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c := client.New("http://localhost:8080",
//	    client.WithAPIKey("operator-key"),
//	    client.WithTimeout(30*time.Second),
//	)
package client
