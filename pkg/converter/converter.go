// pkg/converter/converter.go
package converter

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-stack/pkg/connector"
	"github.com/David-Botos/sales-stack/pkg/model"
)

// TypeConverter renders destination column kinds as DDL for one dialect
type TypeConverter struct {
	logger  *zap.Logger
	dialect connector.Dialect
}

// NewTypeConverter creates a TypeConverter for the given dialect
func NewTypeConverter(logger *zap.Logger, dialect connector.Dialect) *TypeConverter {
	return &TypeConverter{
		logger:  logger,
		dialect: dialect,
	}
}

var typeNames = map[connector.Dialect]map[model.ColumnKind]string{
	connector.DialectSQLite: {
		model.KindText:    "TEXT",
		model.KindInteger: "INTEGER",
		model.KindReal:    "REAL",
	},
	connector.DialectPostgres: {
		model.KindText:    "TEXT",
		model.KindInteger: "BIGINT",
		model.KindReal:    "DOUBLE PRECISION",
	},
	connector.DialectSnowflake: {
		model.KindText:    "VARCHAR",
		model.KindInteger: "NUMBER(38,0)",
		model.KindReal:    "FLOAT",
	},
}

// MapColumnType returns the column type the dialect uses for kind
func (c *TypeConverter) MapColumnType(kind model.ColumnKind) (string, error) {
	kinds, ok := typeNames[c.dialect]
	if !ok {
		return "", fmt.Errorf("unsupported dialect: %s", c.dialect)
	}
	name, ok := kinds[kind]
	if !ok {
		c.logger.Warn("Unknown column kind encountered",
			zap.String("dialect", string(c.dialect)),
			zap.String("kind", kind.String()))
		return "", fmt.Errorf("unknown column kind %s for dialect %s", kind, c.dialect)
	}
	return name, nil
}

// GenerateColumnDefinitions creates column definitions in metadata order
func (c *TypeConverter) GenerateColumnDefinitions(metadata *model.TableMetadata) ([]string, error) {
	if metadata == nil || len(metadata.Columns) == 0 {
		return nil, errors.New("table metadata has no columns")
	}

	definitions := make([]string, 0, len(metadata.Columns))
	for _, col := range metadata.Columns {
		typeName, err := c.MapColumnType(col.Kind)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}

		nullability := "NOT NULL"
		if col.Nullable {
			nullability = "NULL"
		}

		definitions = append(definitions, fmt.Sprintf("%s %s %s", col.Name, typeName, nullability))
	}

	return definitions, nil
}

// CreateTableSQL renders the CREATE TABLE statement for metadata
func (c *TypeConverter) CreateTableSQL(metadata *model.TableMetadata) (string, error) {
	defs, err := c.GenerateColumnDefinitions(metadata)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", metadata.Table, strings.Join(defs, ",\n\t")), nil
}

// DropTableSQL renders the statement that removes table if it exists
func (c *TypeConverter) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

// InsertSQL renders a multi-row INSERT for rowCount rows using ? placeholders.
// Callers rebind the placeholders for their driver.
func (c *TypeConverter) InsertSQL(metadata *model.TableMetadata, rowCount int) string {
	cols := metadata.ColumnNames()
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", metadata.Table, strings.Join(cols, ", "))
	for i := 0; i < rowCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String()
}
