package tasks

import (
	"context"

	"curator/internal/library"
	"curator/internal/queue"
	"curator/internal/services"
)

// addressLookup reverse-geocodes the capture coordinates into an address.
func (env *Environment) addressLookup(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.Geocoder == nil || !record.HasLocation() {
		return Succeeded()
	}

	address, status := env.Geocoder.Resolve(ctx, *record.Latitude, *record.Longitude)
	if !status.OK() {
		return outcomeFromStatus(status)
	}
	if address.Formatted != "" {
		if err := env.Library.SetAddress(ctx, task.RelatedEntityID, address.Formatted); err != nil {
			return FailedTransient(err, 0)
		}
	}
	return Succeeded()
}

// elevationLookup resolves the capture coordinates to meters above sea level.
func (env *Environment) elevationLookup(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.Elevation == nil || !record.HasLocation() {
		return Succeeded()
	}

	meters, status := env.Elevation.Lookup(ctx, *record.Latitude, *record.Longitude)
	if !status.OK() {
		return outcomeFromStatus(status)
	}
	if status.Kind == services.KindSuccess {
		if err := env.Library.SetElevation(ctx, task.RelatedEntityID, meters); err != nil {
			return FailedTransient(err, 0)
		}
	}
	return Succeeded()
}

// subjectDetection tags the image with detected subjects.
func (env *Environment) subjectDetection(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.Classifier == nil || record.Corrupt {
		return Succeeded()
	}

	detected, status := env.Classifier.Detect(ctx, env.enrichmentImagePath(record, task.RelatedEntityID))
	if !status.OK() {
		return outcomeFromStatus(status)
	}

	tags := make([]library.Tag, 0, len(detected))
	for _, tag := range detected {
		tags = append(tags, library.Tag{Label: tag.Label, Confidence: tag.Confidence})
	}
	if err := env.Library.ReplaceTags(ctx, record.ID, "classify", tags); err != nil {
		return FailedTransient(err, 0)
	}
	return Succeeded()
}

// recognizeText runs general OCR over the image.
func (env *Environment) recognizeText(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.OCR == nil || record.Corrupt {
		return Succeeded()
	}

	text, status := env.OCR.Recognize(ctx, env.enrichmentImagePath(record, task.RelatedEntityID))
	if !status.OK() {
		return outcomeFromStatus(status)
	}
	if text != "" {
		if err := env.Library.SetRecognizedText(ctx, task.RelatedEntityID, text); err != nil {
			return FailedTransient(err, 0)
		}
	}
	return Succeeded()
}

// recognizePlate reads a license plate out of the image, if one is visible.
func (env *Environment) recognizePlate(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.Plate == nil || record.Corrupt {
		return Succeeded()
	}

	plate, status := env.Plate.Recognize(ctx, env.enrichmentImagePath(record, task.RelatedEntityID))
	if !status.OK() {
		return outcomeFromStatus(status)
	}
	if plate != "" {
		if err := env.Library.SetPlateText(ctx, task.RelatedEntityID, plate); err != nil {
			return FailedTransient(err, 0)
		}
	}
	return Succeeded()
}

// identifyPlants asks the plant identifier for candidate species.
func (env *Environment) identifyPlants(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if env.Plants == nil || record.Corrupt {
		return Succeeded()
	}

	suggestions, status := env.Plants.Identify(ctx, env.enrichmentImagePath(record, task.RelatedEntityID))
	if !status.OK() {
		return outcomeFromStatus(status)
	}

	tags := make([]library.Tag, 0, len(suggestions))
	for _, suggestion := range suggestions {
		tags = append(tags, library.Tag{Label: suggestion.Name, Confidence: suggestion.Probability})
	}
	if err := env.Library.ReplaceTags(ctx, record.ID, "plant", tags); err != nil {
		return FailedTransient(err, 0)
	}
	return Succeeded()
}

// enrichmentImagePath picks the image to send to a provider: the staged file
// itself, or the extracted still frame when the entity is a video.
func (env *Environment) enrichmentImagePath(record *library.MediaFile, entityID int64) string {
	if isVideoStaging(record.StagingPath) {
		return env.stillFramePathFor(entityID)
	}
	return record.StagingPath
}
