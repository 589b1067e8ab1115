package model

import "time"

// UnitKind tags a rendering or structural unit with the code base it belongs to. It is decided
// when the unit is constructed and drives the skip policy.
type UnitKind string

const (
	// UnitKindApplication is user or application code and is always captured.
	UnitKindApplication UnitKind = "application"
	// UnitKindFramework is a built-in unit of the surrounding framework, skipped in strict mode.
	UnitKindFramework UnitKind = "framework"
	// UnitKindSelf is output produced by the profiler itself and is never captured.
	UnitKindSelf UnitKind = "self"
)

type LoadKind string

const (
	LoadKindEntity     LoadKind = "entity"
	LoadKindCollection LoadKind = "collection"
)

// RenderUnit identifies a unit whose rendering is timed by a span.
type RenderUnit struct {
	Name string
	Kind UnitKind
}

// StructuralUnit is a layout element produced when the structure of a response is generated.
type StructuralUnit struct {
	Name     string
	Kind     UnitKind
	Type     string
	Parent   string
	Template string
}

func (u StructuralUnit) RenderUnit() RenderUnit {
	return RenderUnit{Name: u.Name, Kind: u.Kind}
}

// StructuralContext describes the layout the units were generated from.
type StructuralContext struct {
	Handles []string
	Design  string
	Theme   string
}

type ActionRecord struct {
	Controller string    `json:"controller"`
	Action     string    `json:"action"`
	Route      string    `json:"route,omitempty"`
	Outcome    int       `json:"outcome,omitempty"`
	Dispatched bool      `json:"dispatched"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

func (a ActionRecord) sameAction(other ActionRecord) bool {
	return a.Controller == other.Controller && a.Action == other.Action
}

// merge copies the fields set on update into the record, leaving the rest as they were.
func (a *ActionRecord) merge(update ActionRecord) {
	if update.Route != "" {
		a.Route = update.Route
	}
	if update.Outcome != 0 {
		a.Outcome = update.Outcome
	}
	if update.Dispatched {
		a.Dispatched = true
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = update.StartedAt
	}
	if !update.EndedAt.IsZero() {
		a.EndedAt = update.EndedAt
	}
}

type LoadRecord struct {
	Kind       LoadKind  `json:"kind"`
	Resource   string    `json:"resource"`
	Identifier string    `json:"identifier,omitempty"`
	Query      string    `json:"query,omitempty"`
	Count      int       `json:"count"`
	LoadedAt   time.Time `json:"loaded_at"`
}

type StructuralRecord struct {
	Name     string   `json:"name"`
	Kind     UnitKind `json:"kind"`
	Type     string   `json:"type,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Template string   `json:"template,omitempty"`
}

func NewStructuralRecord(unit StructuralUnit) StructuralRecord {
	return StructuralRecord{
		Name:     unit.Name,
		Kind:     unit.Kind,
		Type:     unit.Type,
		Parent:   unit.Parent,
		Template: unit.Template,
	}
}

type LayoutRecord struct {
	Handles []string `json:"handles"`
	Design  string   `json:"design,omitempty"`
	Theme   string   `json:"theme,omitempty"`
}

// LogRecord is a log entry written while the request was being served.
type LogRecord struct {
	Level   string                 `json:"level"`
	Logger  string                 `json:"logger,omitempty"`
	Message string                 `json:"message"`
	Caller  string                 `json:"caller,omitempty"`
	Time    time.Time              `json:"time"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// QueryRecord is one statement executed against a backing store on behalf of the request.
type QueryRecord struct {
	Statement  string        `json:"statement"`
	Duration   time.Duration `json:"duration_ns"`
	Rows       int           `json:"rows"`
	Failed     bool          `json:"failed,omitempty"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// TimerRecord accumulates the time spent between matching starts and stops of a named timer.
type TimerRecord struct {
	Name    string        `json:"name"`
	Count   int           `json:"count"`
	Total   time.Duration `json:"total_ns"`
	Running bool          `json:"running"`

	startedAt time.Time
}

func (t *TimerRecord) start(at time.Time) {
	t.startedAt = at
	t.Running = true
}

func (t *TimerRecord) stop(at time.Time) error {
	if !t.Running {
		return ErrTimerNotRunning
	}
	if at.After(t.startedAt) {
		t.Total += at.Sub(t.startedAt)
	}
	t.Count++
	t.Running = false
	return nil
}
