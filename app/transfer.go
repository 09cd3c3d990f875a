package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"todolist/model"
	"todolist/repository"
)

const noTodosMessage = "No todos found in the import file."

// importSchema constrains the shape of an import document. Field-level
// defaults are applied by the model decoders, so todo objects are left open.
const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "exportedAt": {"type": ["string", "null"]},
    "version": {"type": ["string", "null"]},
    "todos": {
      "type": ["array", "null"],
      "items": {"type": "object"}
    }
  }
}`

var compiledImportSchema = jsonschema.MustCompileString("todolist-import.json", importSchema)

// ImportExportService converts the todo collection to and from the
// versioned snapshot document.
type ImportExportService struct {
	todos *TodoService
	repo  *repository.Repository[model.TodoItem]
	log   *zap.Logger
	now   Clock
}

// NewImportExportService returns a service that reads todos from repo and
// saves imported ones through todos.
func NewImportExportService(todos *TodoService, repo *repository.Repository[model.TodoItem], opts ...Option) *ImportExportService {
	o := buildOptions(opts)
	return &ImportExportService{
		todos: todos,
		repo:  repo,
		log:   o.log.Named("transfer"),
		now:   o.now,
	}
}

// Export serializes every stored todo into an indented snapshot document.
func (s *ImportExportService) Export(ctx context.Context) ([]byte, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}
	if all == nil {
		all = []model.TodoItem{}
	}
	snapshot := model.Snapshot{
		ExportedAt: s.now(),
		Version:    model.SnapshotVersion,
		Todos:      all,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Import merges the todos of payload into the collection. With
// replaceExisting the collection is cleared first; otherwise todos whose
// ID was stored before the import are skipped. Todos that fail validation
// are logged and still counted as imported. A storage failure stops the
// import and keeps what was already saved.
func (s *ImportExportService) Import(ctx context.Context, payload []byte, replaceExisting bool) model.ImportResult {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return failedImport("Invalid JSON format: " + err.Error())
	}
	if err := compiledImportSchema.Validate(doc); err != nil {
		return failedImport("Invalid import document: " + schemaMessage(err))
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return failedImport("Invalid JSON format: " + err.Error())
	}
	if len(snapshot.Todos) == 0 {
		return failedImport(noTodosMessage)
	}

	if replaceExisting {
		if err := s.todos.ClearAll(ctx, ""); err != nil {
			return failedImport("Import failed: " + err.Error())
		}
	}

	existing, err := s.repo.GetAll(ctx)
	if err != nil {
		return failedImport("Import failed: " + err.Error())
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t.ID] = struct{}{}
	}

	result := model.ImportResult{}
	for _, todo := range snapshot.Todos {
		if _, dup := known[todo.ID]; dup && todo.ID != "" && !replaceExisting {
			result.SkippedCount++
			continue
		}
		if strings.TrimSpace(todo.ID) == "" {
			todo.ID = model.NewID()
		}
		if todo.CreatedAt.IsZero() {
			todo.CreatedAt = s.now()
		}

		err := s.todos.SaveTodo(ctx, todo)
		if errors.Is(err, repository.ErrInvalidEntity) {
			s.log.Warn("todo not saved", zap.String("id", todo.ID), zap.Error(err))
			err = nil
		}
		if err != nil {
			result.ErrorMessage = "Import failed: " + err.Error()
			s.log.Error("import stopped",
				zap.Int("imported", result.ImportedCount),
				zap.Int("skipped", result.SkippedCount),
				zap.Error(err))
			return result
		}
		result.ImportedCount++
	}

	result.Success = true
	s.log.Info("import finished",
		zap.Int("imported", result.ImportedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Bool("replace", replaceExisting))
	return result
}

func failedImport(msg string) model.ImportResult {
	return model.ImportResult{Success: false, ErrorMessage: msg}
}

// schemaMessage flattens a validation error into "location: message" parts.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	collectSchemaCauses(ve, &parts)
	return strings.Join(parts, "; ")
}

func collectSchemaCauses(ve *jsonschema.ValidationError, parts *[]string) {
	if len(ve.Causes) == 0 {
		location := ve.InstanceLocation
		if location == "" {
			location = "/"
		}
		*parts = append(*parts, location+": "+ve.Message)
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaCauses(cause, parts)
	}
}
