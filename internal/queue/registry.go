package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Registry errors.
var (
	ErrUnknownJobType   = errors.New("unknown job type")
	ErrDuplicateJobType = errors.New("job type already registered")
	ErrUnknownQueue     = errors.New("unknown queue")
	ErrInvalidPayload   = errors.New("invalid job payload")
)

// Handler executes one job type. NewPayload returns a pointer to a fresh
// payload struct; the dispatcher decodes and validates the stored payload
// into it before calling Handle. Handle must be idempotent: the same payload
// can be delivered more than once.
type Handler interface {
	// Type returns the job type tag this handler serves.
	Type() string

	// Queue names the declared queue this job type runs on.
	Queue() string

	// NewPayload returns a pointer to an empty payload value carrying
	// validator tags.
	NewPayload() any

	// Handle executes the job and returns a short result description.
	Handle(ctx context.Context, payload any) (string, error)
}

// Registry maps job type tags to handlers and payload shapes. Registration
// is validated up front so an unknown tag or malformed payload fails at the
// enqueue call site, not at dispatch.
type Registry struct {
	queues   map[string]Queue
	handlers map[string]Handler
	validate *validator.Validate
}

// NewRegistry creates a Registry over the declared queue set.
func NewRegistry(queues []Queue) *Registry {
	byName := make(map[string]Queue, len(queues))
	for _, q := range queues {
		byName[q.Name] = q
	}
	return &Registry{
		queues:   byName,
		handlers: make(map[string]Handler),
		validate: validator.New(),
	}
}

// Register adds a handler. It fails on an empty type tag, a duplicate
// registration, or a queue that was never declared.
func (r *Registry) Register(h Handler) error {
	jobType := h.Type()
	if jobType == "" {
		return fmt.Errorf("%w: empty type tag", ErrInvalidPayload)
	}
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJobType, jobType)
	}
	if _, ok := r.queues[h.Queue()]; !ok {
		return fmt.Errorf("%w: %q (job type %s)", ErrUnknownQueue, h.Queue(), jobType)
	}
	r.handlers[jobType] = h
	return nil
}

// Handler returns the handler registered for jobType.
func (r *Registry) Handler(jobType string) (Handler, error) {
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}
	return h, nil
}

// QueueFor returns the queue declaration the given job type runs on.
func (r *Registry) QueueFor(jobType string) (Queue, error) {
	h, err := r.Handler(jobType)
	if err != nil {
		return Queue{}, err
	}
	return r.queues[h.Queue()], nil
}

// QueueByName returns a declared queue.
func (r *Registry) QueueByName(name string) (Queue, error) {
	q, ok := r.queues[name]
	if !ok {
		return Queue{}, fmt.Errorf("%w: %s", ErrUnknownQueue, name)
	}
	return q, nil
}

// Queues returns the declared queue set.
func (r *Registry) Queues() []Queue {
	out := make([]Queue, 0, len(r.queues))
	for _, q := range r.queues {
		out = append(out, q)
	}
	return out
}

// EncodePayload validates payload against its struct tags and serializes it
// for storage.
func (r *Registry) EncodePayload(jobType string, payload any) (json.RawMessage, error) {
	if _, err := r.Handler(jobType); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return raw, nil
}

// DecodePayload deserializes a stored payload into the handler's payload
// shape and re-validates it.
func (r *Registry) DecodePayload(jobType string, raw json.RawMessage) (any, error) {
	h, err := r.Handler(jobType)
	if err != nil {
		return nil, err
	}
	payload := h.NewPayload()
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}
