package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/llm"
)

// memStore is an in-memory TopicStore and Publisher with the same
// version-guarded checkpoint semantics as the database layer.
type memStore struct {
	mu     sync.Mutex
	topics map[uuid.UUID]*db.Topic
	posts  []*db.PostInput

	// statusHistory records every SetTopicStatus call in order.
	statusHistory []string
	// checkpointErr fails the next SaveCheckpoint call when set.
	checkpointErr error
	createPostErr error
}

func newMemStore(topics ...*db.Topic) *memStore {
	s := &memStore{topics: make(map[uuid.UUID]*db.Topic)}
	for _, topic := range topics {
		s.topics[topic.ID] = topic
	}
	return s
}

func (s *memStore) GetTopic(ctx context.Context, id uuid.UUID) (*db.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return nil, db.ErrTopicNotFound
	}
	clone := *topic
	clone.CompletedStages = append([]string(nil), topic.CompletedStages...)
	clone.CheckpointData = make(map[string]json.RawMessage, len(topic.CheckpointData))
	for k, v := range topic.CheckpointData {
		clone.CheckpointData[k] = v
	}
	return &clone, nil
}

func (s *memStore) SetTopicStatus(ctx context.Context, id uuid.UUID, status string, currentStage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return db.ErrTopicNotFound
	}
	topic.Status = status
	topic.CurrentStage = currentStage
	s.statusHistory = append(s.statusHistory, status)
	return nil
}

func (s *memStore) SaveCheckpoint(ctx context.Context, id uuid.UUID, stage string, output json.RawMessage, version int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpointErr != nil {
		err := s.checkpointErr
		s.checkpointErr = nil
		return 0, err
	}
	topic, ok := s.topics[id]
	if !ok {
		return 0, db.ErrTopicNotFound
	}
	if topic.Version != version {
		return 0, db.ErrCheckpointConflict
	}
	if topic.CheckpointData == nil {
		topic.CheckpointData = make(map[string]json.RawMessage)
	}
	topic.CheckpointData[stage] = output
	if !contains(topic.CompletedStages, stage) {
		topic.CompletedStages = append(topic.CompletedStages, stage)
	}
	topic.Version++
	return topic.Version, nil
}

func (s *memStore) ResetCheckpoint(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return db.ErrTopicNotFound
	}
	topic.CheckpointData = make(map[string]json.RawMessage)
	topic.CompletedStages = nil
	topic.LastCheckpointAt = nil
	topic.Version++
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, id uuid.UUID, stage, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return db.ErrTopicNotFound
	}
	topic.Status = db.TopicStatusFailed
	topic.CurrentStage = &stage
	topic.LastError = &errorMessage
	topic.RetryCount++
	return nil
}

func (s *memStore) MarkReviewReady(ctx context.Context, id uuid.UUID, linkedInHr, linkedInEn *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return db.ErrTopicNotFound
	}
	topic.Status = db.TopicStatusReviewReady
	topic.CurrentStage = nil
	topic.LinkedInPostHr = linkedInHr
	topic.LinkedInPostEn = linkedInEn
	s.statusHistory = append(s.statusHistory, db.TopicStatusReviewReady)
	return nil
}

func (s *memStore) RequeueForRetry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return db.ErrTopicNotFound
	}
	topic.Status = db.TopicStatusQueued
	topic.LastError = nil
	return nil
}

func (s *memStore) ListQueuedTopicIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, topic := range s.topics {
		if topic.Status == db.TopicStatusQueued {
			ids = append(ids, id)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *memStore) PostExistsForTopic(ctx context.Context, topicID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.TopicID == topicID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreatePost(ctx context.Context, input *db.PostInput) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createPostErr != nil {
		return uuid.Nil, s.createPostErr
	}
	s.posts = append(s.posts, input)
	return uuid.New(), nil
}

func (s *memStore) topic(id uuid.UUID) *db.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics[id]
}

func (s *memStore) postCount(topicID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, post := range s.posts {
		if post.TopicID == topicID {
			n++
		}
	}
	return n
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// scriptedLLM answers each stage's prompt with valid output for that stage,
// recognized by a marker string unique to the stage's prompt template. It
// can be told to fail on a given stage and counts calls per stage.
type scriptedLLM struct {
	mu       sync.Mutex
	calls    map[string]int
	failOn   string
	failWith error
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{calls: make(map[string]int)}
}

// stageMarkers maps a distinctive prompt substring to the stage it belongs
// to and the canned valid response.
var stageResponses = []struct {
	marker   string
	stage    string
	response string
}{
	{"market researcher", "research", `{"summary":"sažetak","market_findings":["nalaz"],"suggested_angles":["kut"]}`},
	{"editorial planner", "outline", `{"title_hr":"Naslov","title_en":"Title","hook":"kuka","sections":[{"heading":"Uvod","talking_points":["p"]}]}`},
	{"Write the full article in Croatian", "draft_hr", `{"title":"Naslov","content":"# Tijelo\n\nOdlomak.","excerpt":"Sažetak.","reading_time":4,"language":"hr"}`},
	{"Write the full article in English", "draft_en", `{"title":"Title","content":"# Body\n\nParagraph.","excerpt":"Teaser.","reading_time":4,"language":"en"}`},
	{"senior editor", "edit", `{"hr":{"title":"Naslov","content":"bolje tijelo","excerpt":"sažetak","reading_time":4},"en":{"title":"Title","content":"better body","excerpt":"teaser","reading_time":4},"changes":["flow"],"quality_score":8.2}`},
	{"SEO specialist", "seo", `{"hr":{"meta_title":"Meta naslov","meta_description":"Meta opis","keywords":["k1"],"tags":["t"],"category":"c"},"en":{"meta_title":"Meta title","meta_description":"Meta description","keywords":["k1"],"tags":["t"],"category":"c"}}`},
	{"art director", "image", `{"prompt":"warm interior","alt_text":"dining room"}`},
	{"LinkedIn post in Croatian", "linkedin_hr", `{"post":"Objava na LinkedInu.","hashtags":["#dinver"],"language":"hr"}`},
	{"LinkedIn post in English", "linkedin_en", `{"post":"A LinkedIn post.","hashtags":["#dinver"],"language":"en"}`},
}

func (s *scriptedLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Result, error) {
	return s.GenerateJSON(ctx, prompt, tier)
}

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (*llm.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sr := range stageResponses {
		if strings.Contains(prompt, sr.marker) {
			s.calls[sr.stage]++
			if s.failOn == sr.stage {
				return nil, s.failWith
			}
			return &llm.Result{
				Text:  sr.response,
				Model: "scripted",
				Usage: llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
			}, nil
		}
	}
	return nil, fmt.Errorf("unrecognized prompt: %.60s", prompt)
}

func (s *scriptedLLM) GetModel(tier llm.ModelTier) string { return "scripted" }
func (s *scriptedLLM) Close() error                       { return nil }

func (s *scriptedLLM) callCount(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[stage]
}

type stubImageClient struct{ err error }

func (c *stubImageClient) GenerateImage(ctx context.Context, prompt string) (*llm.ImageResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ImageResult{Data: []byte{0x89}, MIMEType: "image/png", Model: "scripted-image"}, nil
}

func (c *stubImageClient) Close() error { return nil }

type memImageStore struct {
	mu    sync.Mutex
	saved int
}

func (s *memImageStore) SaveImage(ctx context.Context, input *db.ImageInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return fmt.Sprintf("topics/%s/%d", input.TopicID, s.saved), nil
}

type nopStageLogger struct{}

func (nopStageLogger) StartStageLog(ctx context.Context, input *db.StageLogStart) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (nopStageLogger) FinishStageLog(ctx context.Context, id uuid.UUID, finish *db.StageLogFinish) error {
	return nil
}

func newTestTopic(both bool) *db.Topic {
	return &db.Topic{
		ID:                    uuid.New(),
		Title:                 "Digitalna lojalnost",
		Status:                db.TopicStatusQueued,
		GenerateBothLanguages: both,
		CheckpointData:        map[string]json.RawMessage{},
		MaxRetries:            db.DefaultMaxRetries,
		Version:               1,
	}
}

func newTestManager(store *memStore, client llm.Client) *Manager {
	return NewManager(Deps{
		Store:      store,
		Logs:       nopStageLogger{},
		LLM:        client,
		Images:     &stubImageClient{},
		ImageStore: &memImageStore{},
		Publisher:  store,
	}, Options{})
}
