package process

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"trueedits/internal/logging"
)

// Registry tracks every external process started by a Runner so a stop
// request can terminate all of them at once.
type Registry struct {
	mu     sync.Mutex
	procs  map[int]tracked
	logger *slog.Logger
}

type tracked struct {
	proc    *os.Process
	name    string
	started time.Time
	done    chan struct{}
}

// Handle describes a tracked process for status output.
type Handle struct {
	PID     int
	Name    string
	Started time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		procs:  make(map[int]tracked),
		logger: logging.NewComponentLogger(logger, "process-registry"),
	}
}

func (r *Registry) add(proc *os.Process, name string) chan struct{} {
	done := make(chan struct{})
	r.mu.Lock()
	r.procs[proc.Pid] = tracked{proc: proc, name: name, started: time.Now(), done: done}
	r.mu.Unlock()
	return done
}

func (r *Registry) remove(pid int) {
	r.mu.Lock()
	t, ok := r.procs[pid]
	delete(r.procs, pid)
	r.mu.Unlock()
	if ok {
		close(t.done)
	}
}

// Len returns the number of live tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Active lists tracked processes ordered by PID.
func (r *Registry) Active() []Handle {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.procs))
	for pid, t := range r.procs {
		handles = append(handles, Handle{PID: pid, Name: t.name, Started: t.started})
	}
	r.mu.Unlock()
	sort.Slice(handles, func(i, j int) bool { return handles[i].PID < handles[j].PID })
	return handles
}

// TerminateAll sends SIGTERM to every tracked process group, waits up to
// grace for them to exit and kills whatever is left. It returns the number
// of processes that had to be killed.
func (r *Registry) TerminateAll(grace time.Duration) int {
	r.mu.Lock()
	snapshot := make([]tracked, 0, len(r.procs))
	for _, t := range r.procs {
		snapshot = append(snapshot, t)
	}
	r.mu.Unlock()
	if len(snapshot) == 0 {
		return 0
	}

	for _, t := range snapshot {
		r.logger.Info("terminating process",
			logging.String(logging.FieldEventType, "process_terminate"),
			logging.Int("pid", t.proc.Pid),
			logging.String("command", t.name),
		)
		signalGroup(t.proc, unix.SIGTERM)
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	killed := 0
	for _, t := range snapshot {
		select {
		case <-t.done:
			continue
		case <-deadline.C:
		}
		// Deadline passed; drain the rest without waiting.
		for _, rest := range snapshot {
			select {
			case <-rest.done:
			default:
				r.logger.Warn("process ignored SIGTERM; killing",
					logging.String(logging.FieldEventType, "process_kill"),
					logging.Int("pid", rest.proc.Pid),
					logging.String("command", rest.name),
					logging.String(logging.FieldErrorHint, "check for stuck ffmpeg or model processes"),
				)
				signalGroup(rest.proc, unix.SIGKILL)
				killed++
			}
		}
		break
	}
	return killed
}

// signalGroup signals the process group led by proc, falling back to the
// process itself when the group is gone.
func signalGroup(proc *os.Process, sig unix.Signal) {
	if proc == nil {
		return
	}
	if err := unix.Kill(-proc.Pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return
		}
		_ = proc.Signal(sig)
	}
}
