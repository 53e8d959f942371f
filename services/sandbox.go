package services

import "log"

// SandboxProvisioner manages per-user sandbox environments for courses that
// need one (mentored / K8S backed).
type SandboxProvisioner interface {
	Initialize(userID uint, sandboxType string) error
	Destroy(userID uint, sandboxType string) error
}

const (
	sandboxActionInitialize = "initialize"
	sandboxActionDestroy    = "destroy"
)

type sandboxTask struct {
	action      string
	userID      uint
	sandboxType string
}

// SandboxDispatcher runs provisioner calls on a background worker. Submitting
// never blocks the caller and a failed task is only logged: the enrollment
// transition that triggered it has already been committed and must not be
// rolled back.
type SandboxDispatcher struct {
	provisioner SandboxProvisioner
	tasks       chan sandboxTask
	done        chan struct{}
}

func NewSandboxDispatcher(provisioner SandboxProvisioner) *SandboxDispatcher {
	d := &SandboxDispatcher{
		provisioner: provisioner,
		tasks:       make(chan sandboxTask, 64),
		done:        make(chan struct{}),
	}
	go d.worker()
	return d
}

// SubmitInitialize queues sandbox creation for the user.
func (d *SandboxDispatcher) SubmitInitialize(userID uint, sandboxType string) {
	d.submit(sandboxTask{action: sandboxActionInitialize, userID: userID, sandboxType: sandboxType})
}

// SubmitDestroy queues sandbox teardown for the user.
func (d *SandboxDispatcher) SubmitDestroy(userID uint, sandboxType string) {
	d.submit(sandboxTask{action: sandboxActionDestroy, userID: userID, sandboxType: sandboxType})
}

func (d *SandboxDispatcher) submit(task sandboxTask) {
	select {
	case d.tasks <- task:
	default:
		log.Printf("[SANDBOX] Queue full, dropping %s task for user %d", task.action, task.userID)
	}
}

// Stop drains queued tasks and stops the worker.
func (d *SandboxDispatcher) Stop() {
	close(d.tasks)
	<-d.done
}

func (d *SandboxDispatcher) worker() {
	defer close(d.done)
	for task := range d.tasks {
		var err error
		switch task.action {
		case sandboxActionInitialize:
			err = d.provisioner.Initialize(task.userID, task.sandboxType)
		case sandboxActionDestroy:
			err = d.provisioner.Destroy(task.userID, task.sandboxType)
		}
		if err != nil {
			log.Printf("[SANDBOX] %s failed for user %d (%s): %v", task.action, task.userID, task.sandboxType, err)
		}
	}
}
