package directors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"griffon/src/datastore"
	"griffon/src/helpers"
	"griffon/src/validation"
)

// CommandResponse is the result of a query run through the ServiceManager.
type CommandResponse struct {
	ResultCount int              `yaml:"resultCount"`
	Result      []map[string]any `yaml:"result"`
}

// FieldReport is one rejected property of a row, with its message resolved.
type FieldReport struct {
	Field   string `yaml:"field"`
	Value   any    `yaml:"value"`
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
}

// RowReport lists the rejections of one row. Row is the zero based position
// in the rows file.
type RowReport struct {
	Row    int           `yaml:"row"`
	Fields []FieldReport `yaml:"fields"`
}

// LoadRows reads a YAML list of property maps.
func LoadRows(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows %s: %w", path, err)
	}
	var rows []map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows %s: %w", path, err)
	}
	return rows, nil
}

// ValidateRows validates every row against the constraints of className
// without storing anything. Only failing rows are reported.
func (sm *ServiceManager) ValidateRows(className string, rows []map[string]any) ([]RowReport, error) {
	class, err := sm.Class(className)
	if err != nil {
		return nil, err
	}
	properties, _ := sm.Handler.ConstrainedProperties(class)

	var reports []RowReport
	for i, row := range rows {
		entity, err := class.FromMap(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		errs := validation.NewErrors(class.ShortName(), nil)
		if !sm.Validator.Validate(properties, entity, errs) {
			reports = append(reports, sm.report(i, errs))
		}
	}
	sm.logger.Infof("Validated %d rows of %s, %d rejected", len(rows), className, len(reports))
	return reports, nil
}

// LoadDataset saves rows into the dataset of className. Rows that fail
// validation or uniqueness are reported and skipped unless the manager
// fails on error, in which case the first failure is returned.
func (sm *ServiceManager) LoadDataset(className string, rows []map[string]any) (int, []RowReport, error) {
	class, err := sm.Class(className)
	if err != nil {
		return 0, nil, err
	}

	saved := 0
	var reports []RowReport
	for i, row := range rows {
		entity, err := class.FromMap(row)
		if err != nil {
			return saved, reports, fmt.Errorf("row %d: %w", i, err)
		}
		errs, err := sm.Handler.Save(entity, sm.Handler.DefaultSaveParams())
		if err != nil {
			return saved, reports, fmt.Errorf("row %d: %w", i, err)
		}
		if errs.HasErrors() {
			reports = append(reports, sm.report(i, errs))
			continue
		}
		saved++
	}
	sm.logger.Infof("Loaded %d of %d rows into dataset %s", saved, len(rows), className)
	return saved, reports, nil
}

// Query runs a where clause against the dataset of className. An empty
// clause lists the dataset.
func (sm *ServiceManager) Query(className, where string, opts datastore.Options) (*CommandResponse, error) {
	class, err := sm.Class(className)
	if err != nil {
		return nil, err
	}

	var entities []any
	if where == "" {
		entities, err = sm.Handler.List(class, opts)
	} else {
		var c datastore.Criterion
		c, err = datastore.ParseWhereClause(where)
		if err != nil {
			return nil, fmt.Errorf("error parsing where clause: %w", err)
		}
		sm.logger.Debugw("Running query", "dataset", className, "criterion", c.String())
		entities, err = sm.Handler.FindAll(class, c, opts)
	}
	if err != nil {
		return nil, err
	}

	result := make([]map[string]any, 0, len(entities))
	for _, entity := range entities {
		result = append(result, class.ToMap(entity))
	}
	return &CommandResponse{ResultCount: len(result), Result: result}, nil
}

// WriteSnapshot writes a BSON snapshot of the datastore to path.
func (sm *ServiceManager) WriteSnapshot(path string) error {
	data, err := sm.Datastore.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot restores the registered classes from a snapshot file.
func (sm *ServiceManager) ReadSnapshot(path string) error {
	if !helpers.FileExists(path, sm.logger) {
		return fmt.Errorf("snapshot %s does not exist", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return sm.Datastore.Restore(data, sm.Classes()...)
}

func (sm *ServiceManager) report(row int, errs validation.Errors) RowReport {
	r := RowReport{Row: row}
	for _, fe := range errs.AllFieldErrors() {
		r.Fields = append(r.Fields, FieldReport{
			Field:   fe.Field,
			Value:   fe.RejectedValue,
			Code:    fe.Code(),
			Message: validation.ResolveMessage(sm.Messages, fe.ObjectError),
		})
	}
	return r
}
