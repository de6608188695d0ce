// Package task provides a small cooperative task runtime.
//
// A Task is created suspended and runs only when a Scheduler resumes it.
// Schedulers are FIFO queues; a step resumes one task and blocks until that
// task suspends (Await, Yield) or finishes, so at most one task body runs
// per scheduler at any moment.
//
//	t := task.New(func(ctx context.Context) (string, error) {
//	    cfg, err := task.Await(ctx, loadConfig())
//	    if err != nil {
//	        return "", err
//	    }
//	    return cfg.Name, nil
//	})
//	name, err := t.Get(ctx)
//
// Get is the synchronous bridge. It pumps the scheduler until the task is
// done and returns ErrDeadlock if the queue drains first.
//
// A Binding attached with BindInjectContext shapes the context the task body
// sees and is released when the task finishes. When a finished task's
// awaiting parent carries the same binding state it is resumed inline;
// otherwise it is queued behind the work already waiting.
package task
