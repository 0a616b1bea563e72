package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dinver-app/content-pipeline/internal/agents"
	"github.com/dinver-app/content-pipeline/internal/db"
	"github.com/dinver-app/content-pipeline/internal/schemas"
)

// buildArtifact assembles the publishable posts from a completed run
// context, one per generated language.
func buildArtifact(rc *agents.Context) ([]*db.PostInput, error) {
	var edited agents.EditorOutput
	if err := rc.Output(db.StageEdit, &edited); err != nil {
		return nil, err
	}
	var seo agents.SEOOutput
	if err := rc.Output(db.StageSEO, &seo); err != nil {
		return nil, err
	}
	var image agents.ImageOutput
	if err := rc.Output(db.StageImage, &image); err != nil {
		return nil, err
	}

	if edited.Hr == nil || seo.Hr == nil {
		return nil, fmt.Errorf("incomplete run context: missing Croatian article or metadata")
	}

	topicID := rc.Topic.ID
	posts := []*db.PostInput{
		assemblePost(topicID, db.LanguageHr, edited.Hr, seo.Hr, &image),
	}

	if rc.Topic.GenerateBothLanguages {
		if edited.En == nil || seo.En == nil {
			return nil, fmt.Errorf("incomplete run context: missing English article or metadata")
		}
		posts = append(posts, assemblePost(topicID, db.LanguageEn, edited.En, seo.En, &image))
	}

	for _, post := range posts {
		if err := schemas.ValidatePost(postDocument(post)); err != nil {
			return nil, fmt.Errorf("%s post failed schema validation: %w", post.Language, err)
		}
	}

	return posts, nil
}

func assemblePost(topicID uuid.UUID, language string, article *agents.EditedContent, meta *agents.SEOMetadata, image *agents.ImageOutput) *db.PostInput {
	return &db.PostInput{
		TopicID:         topicID,
		Language:        language,
		Title:           article.Title,
		Content:         article.Content,
		Excerpt:         article.Excerpt,
		ReadingTime:     article.ReadingTime,
		MetaTitle:       meta.MetaTitle,
		MetaDescription: meta.MetaDescription,
		Keywords:        meta.Keywords,
		Tags:            meta.Tags,
		Category:        meta.Category,
		ImageKey:        image.StorageKey,
		ImageAltText:    image.AltText,
	}
}

// postDocument renders a post input as the document shape the post schema
// describes.
func postDocument(post *db.PostInput) map[string]any {
	return map[string]any{
		"topic_id":         post.TopicID.String(),
		"language":         post.Language,
		"title":            post.Title,
		"content":          post.Content,
		"excerpt":          post.Excerpt,
		"reading_time":     post.ReadingTime,
		"meta_title":       post.MetaTitle,
		"meta_description": post.MetaDescription,
		"keywords":         orEmpty(post.Keywords),
		"tags":             orEmpty(post.Tags),
		"category":         post.Category,
		"image_key":        post.ImageKey,
		"image_alt_text":   post.ImageAltText,
	}
}

// orEmpty keeps nil slices out of the validated document, where they would
// serialize as null instead of an array.
func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// publish creates the post records for a finished run. Publishing is
// at most once per topic: if any post already exists the whole step is a
// no-op, which keeps reruns of completed topics safe.
func (m *Manager) publish(ctx context.Context, rc *agents.Context) error {
	exists, err := m.publisher.PostExistsForTopic(ctx, rc.Topic.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing posts: %w", err)
	}
	if exists {
		fmt.Printf("Posts already exist for topic %s, skipping publish.\n", rc.Topic.ID)
		return nil
	}

	posts, err := buildArtifact(rc)
	if err != nil {
		return err
	}

	for _, post := range posts {
		if _, err := m.publisher.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("failed to create %s post: %w", post.Language, err)
		}
	}
	return nil
}
