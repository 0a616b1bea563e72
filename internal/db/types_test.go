package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicStatusConstants(t *testing.T) {
	assert.Equal(t, "queued", TopicStatusQueued)
	assert.Equal(t, "processing", TopicStatusProcessing)
	assert.Equal(t, "research", TopicStatusResearch)
	assert.Equal(t, "outline", TopicStatusOutline)
	assert.Equal(t, "writing", TopicStatusWriting)
	assert.Equal(t, "editing", TopicStatusEditing)
	assert.Equal(t, "seo", TopicStatusSEO)
	assert.Equal(t, "image", TopicStatusImage)
	assert.Equal(t, "linkedin", TopicStatusLinkedIn)
	assert.Equal(t, "review_ready", TopicStatusReviewReady)
	assert.Equal(t, "failed", TopicStatusFailed)
}

func TestStageConstants(t *testing.T) {
	stages := []string{
		StageResearch,
		StageOutline,
		StageDraftHr,
		StageDraftEn,
		StageEdit,
		StageSEO,
		StageImage,
		StageLinkedInHr,
		StageLinkedInEn,
	}
	for _, stage := range stages {
		assert.NotEmpty(t, stage, "stage constant should not be empty")
	}
}

func TestStageLogStatusConstants(t *testing.T) {
	assert.Equal(t, "started", StageLogStarted)
	assert.Equal(t, "completed", StageLogCompleted)
	assert.Equal(t, "failed", StageLogFailed)
}

func TestTopic_HasCheckpoint(t *testing.T) {
	topic := &Topic{}
	assert.False(t, topic.HasCheckpoint())

	topic.CompletedStages = []string{StageResearch}
	assert.False(t, topic.HasCheckpoint(), "stages without data is not a checkpoint")

	topic.CheckpointData = map[string]json.RawMessage{
		StageResearch: json.RawMessage(`{"summary":"x"}`),
	}
	assert.True(t, topic.HasCheckpoint())
}

func TestTopic_StageCompleted(t *testing.T) {
	topic := &Topic{CompletedStages: []string{StageResearch, StageOutline}}

	assert.True(t, topic.StageCompleted(StageResearch))
	assert.True(t, topic.StageCompleted(StageOutline))
	assert.False(t, topic.StageCompleted(StageDraftHr))
}
