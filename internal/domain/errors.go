package domain

import "fmt"

// UnseenCategoryError indicates an inference-time category absent from the
// persisted encoder. It must never be silently mapped to a default code.
type UnseenCategoryError struct {
	Category string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("category %q not present in encoder table", e.Category)
}

// EncoderModelMismatchError indicates the loaded encoder revision differs
// from the revision the model artifact was trained against.
type EncoderModelMismatchError struct {
	ModelRevision   string
	EncoderRevision string
}

func (e *EncoderModelMismatchError) Error() string {
	return fmt.Sprintf("model trained against encoder revision %s, loaded encoder is %s",
		e.ModelRevision, e.EncoderRevision)
}

// InsufficientHistoryError indicates a product has no usable trailing window.
// Batch callers treat this as a cold-start condition, not an abort.
type InsufficientHistoryError struct {
	ProductID    ProductID
	Observations int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("product %s has %d observations, not enough history to forecast",
		e.ProductID, e.Observations)
}

// SchemaViolationError indicates an input table is structurally unusable:
// a required column is missing or a sales date has no calendar entry.
type SchemaViolationError struct {
	Table  string
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in %s table: %s", e.Table, e.Detail)
}

// NegativeOutputError surfaces a negative predicted or recommended quantity
// observed before clamping. The clamped value is still returned to callers;
// the occurrence itself indicates a modeling or configuration bug and is
// counted in BatchStats.
type NegativeOutputError struct {
	ProductID ProductID
	Stage     string
	Value     float64
}

func (e *NegativeOutputError) Error() string {
	return fmt.Sprintf("negative %s output %.4f for product %s before clamping",
		e.Stage, e.Value, e.ProductID)
}
