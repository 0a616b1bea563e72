package pipeline

import (
	"github.com/dinver-app/content-pipeline/internal/agents"
	"github.com/dinver-app/content-pipeline/internal/db"
)

// stageSpec binds one pipeline stage to its agent and the coarse topic
// status shown while it runs. Stage order is fixed; bilingual-only stages
// are skipped for single-language topics.
type stageSpec struct {
	name          string
	topicStatus   string
	bilingualOnly bool
	agent         agents.Agent
}

// buildStages constructs the full dispatch table in execution order.
func buildStages(deps Deps) []stageSpec {
	return []stageSpec{
		{db.StageResearch, db.TopicStatusResearch, false, agents.NewResearchAgent(deps.LLM, deps.Logs)},
		{db.StageOutline, db.TopicStatusOutline, false, agents.NewOutlineAgent(deps.LLM, deps.Logs)},
		{db.StageDraftHr, db.TopicStatusWriting, false, agents.NewWriterAgent(deps.LLM, deps.Logs, db.LanguageHr)},
		{db.StageDraftEn, db.TopicStatusWriting, true, agents.NewWriterAgent(deps.LLM, deps.Logs, db.LanguageEn)},
		{db.StageEdit, db.TopicStatusEditing, false, agents.NewEditorAgent(deps.LLM, deps.Logs)},
		{db.StageSEO, db.TopicStatusSEO, false, agents.NewSEOAgent(deps.LLM, deps.Logs)},
		{db.StageImage, db.TopicStatusImage, false, agents.NewImageAgent(deps.LLM, deps.Logs, deps.Images, deps.ImageStore)},
		{db.StageLinkedInHr, db.TopicStatusLinkedIn, false, agents.NewSocialPostAgent(deps.LLM, deps.Logs, db.LanguageHr)},
		{db.StageLinkedInEn, db.TopicStatusLinkedIn, true, agents.NewSocialPostAgent(deps.LLM, deps.Logs, db.LanguageEn)},
	}
}

// activeStages filters the dispatch table for one topic's language settings.
func activeStages(all []stageSpec, bothLanguages bool) []stageSpec {
	if bothLanguages {
		return all
	}
	active := make([]stageSpec, 0, len(all))
	for _, s := range all {
		if !s.bilingualOnly {
			active = append(active, s)
		}
	}
	return active
}

// StageOrder returns the stage names a topic will run, in order. Exposed
// for status displays.
func StageOrder(bothLanguages bool) []string {
	specs := activeStages(buildStages(Deps{}), bothLanguages)
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.name
	}
	return names
}
