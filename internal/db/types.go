package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TopicStatus constants cover the full topic lifecycle. The per-stage
// statuses are coarse: both draft stages map to "writing" and both social
// stages map to "linkedin".
const (
	TopicStatusQueued      = "queued"
	TopicStatusProcessing  = "processing"
	TopicStatusResearch    = "research"
	TopicStatusOutline     = "outline"
	TopicStatusWriting     = "writing"
	TopicStatusEditing     = "editing"
	TopicStatusSEO         = "seo"
	TopicStatusImage       = "image"
	TopicStatusLinkedIn    = "linkedin"
	TopicStatusReviewReady = "review_ready"
	TopicStatusFailed      = "failed"
)

// Stage name constants define the fixed pipeline order. draft_en and
// linkedin_en run only for topics with GenerateBothLanguages set.
const (
	StageResearch   = "research"
	StageOutline    = "outline"
	StageDraftHr    = "draft_hr"
	StageDraftEn    = "draft_en"
	StageEdit       = "edit"
	StageSEO        = "seo"
	StageImage      = "image"
	StageLinkedInHr = "linkedin_hr"
	StageLinkedInEn = "linkedin_en"
)

// StageLogStatus constants
const (
	StageLogStarted   = "started"
	StageLogCompleted = "completed"
	StageLogFailed    = "failed"
)

// Language constants
const (
	LanguageHr = "hr"
	LanguageEn = "en"
)

// DefaultMaxRetries is applied to newly submitted topics unless overridden.
const DefaultMaxRetries = 3

// Topic is the unit of work driven through the pipeline.
type Topic struct {
	ID                    uuid.UUID                  `json:"id"`
	Title                 string                     `json:"title"`
	Description           string                     `json:"description,omitempty"`
	Keywords              []string                   `json:"keywords,omitempty"`
	ReferenceURLs         []string                   `json:"reference_urls,omitempty"`
	GenerateBothLanguages bool                       `json:"generate_both_languages"`
	Status                string                     `json:"status"`
	CurrentStage          *string                    `json:"current_stage,omitempty"`
	CompletedStages       []string                   `json:"completed_stages"`
	CheckpointData        map[string]json.RawMessage `json:"checkpoint_data"`
	LastCheckpointAt      *time.Time                 `json:"last_checkpoint_at,omitempty"`
	RetryCount            int                        `json:"retry_count"`
	MaxRetries            int                        `json:"max_retries"`
	LastError             *string                    `json:"last_error,omitempty"`
	LinkedInPostHr        *string                    `json:"linkedin_post_hr,omitempty"`
	LinkedInPostEn        *string                    `json:"linkedin_post_en,omitempty"`
	Version               int64                      `json:"version"`
	CreatedAt             time.Time                  `json:"created_at"`
	UpdatedAt             time.Time                  `json:"updated_at"`
}

// HasCheckpoint reports whether the topic carries any checkpointed progress.
func (t *Topic) HasCheckpoint() bool {
	return len(t.CompletedStages) > 0 && len(t.CheckpointData) > 0
}

// StageCompleted reports whether the named stage is in CompletedStages.
func (t *Topic) StageCompleted(stage string) bool {
	for _, s := range t.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// TopicInput represents input for submitting a new topic
type TopicInput struct {
	Title                 string
	Description           string
	Keywords              []string
	ReferenceURLs         []string
	GenerateBothLanguages bool
	MaxRetries            int
}

// StageLog is the audit record for one stage execution attempt. It is
// created when the stage starts and updated exactly once when it ends;
// the orchestrator never reads it back.
type StageLog struct {
	ID               uuid.UUID       `json:"id"`
	TopicID          uuid.UUID       `json:"topic_id"`
	Stage            string          `json:"stage"`
	AgentName        string          `json:"agent_name"`
	InputData        json.RawMessage `json:"input_data,omitempty"`
	OutputData       json.RawMessage `json:"output_data,omitempty"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	DurationMs       *int            `json:"duration_ms,omitempty"`
	ModelUsed        *string         `json:"model_used,omitempty"`
	Status           string          `json:"status"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

// StageLogStart represents input for opening a stage log entry
type StageLogStart struct {
	TopicID   uuid.UUID
	Stage     string
	AgentName string
	InputData json.RawMessage
}

// StageLogFinish represents the single closing update of a stage log entry
type StageLogFinish struct {
	OutputData       json.RawMessage
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ModelUsed        string
	Status           string
	ErrorMessage     string
}

// Post is a published content record, one per language.
type Post struct {
	ID              uuid.UUID `json:"id"`
	TopicID         uuid.UUID `json:"topic_id"`
	Language        string    `json:"language"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Excerpt         string    `json:"excerpt"`
	ReadingTime     int       `json:"reading_time"`
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	Keywords        []string  `json:"keywords,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Category        string    `json:"category,omitempty"`
	ImageKey        string    `json:"image_key,omitempty"`
	ImageAltText    string    `json:"image_alt_text,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PostInput represents input for creating a published post
type PostInput struct {
	TopicID         uuid.UUID
	Language        string
	Title           string
	Content         string
	Excerpt         string
	ReadingTime     int
	MetaTitle       string
	MetaDescription string
	Keywords        []string
	Tags            []string
	Category        string
	ImageKey        string
	ImageAltText    string
}

// ImageInput represents input for storing a generated image blob
type ImageInput struct {
	TopicID  uuid.UUID
	MIMEType string
	Data     []byte
	AltText  string
}

// StoredImage is a generated image blob with its stable storage key.
type StoredImage struct {
	Key       string    `json:"key"`
	TopicID   uuid.UUID `json:"topic_id"`
	MIMEType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	AltText   string    `json:"alt_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
