package schema

import (
	"fmt"
	"strings"

	"pg-ai-query/pkg/models"
)

// FormatTableList 프롬프트용 테이블 목록
func FormatTableList(tables []models.TableInfo) string {
	if len(tables) == 0 {
		return "No user tables found in the database.\n"
	}
	var sb strings.Builder
	sb.WriteString("Available tables:\n")
	for _, t := range tables {
		typ := t.TableType
		if typ == "" {
			typ = DefaultTableType
		}
		fmt.Fprintf(&sb, "- %s (%s, ~%d rows)\n", t.QualifiedName(), typ, t.EstimatedRows)
	}
	return sb.String()
}

// FormatTableDetails 프롬프트용 테이블 상세
func FormatTableDetails(d models.TableDetails) string {
	var sb strings.Builder
	name := d.TableName
	if d.SchemaName != "" {
		name = d.SchemaName + "." + d.TableName
	}
	fmt.Fprintf(&sb, "Table: %s\n", name)
	sb.WriteString("Columns:\n")
	for _, c := range d.Columns {
		fmt.Fprintf(&sb, "  - %s %s", c.ColumnName, c.DataType)
		if c.IsNullable {
			sb.WriteString(" NULL")
		} else {
			sb.WriteString(" NOT NULL")
		}
		if c.IsPrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		if c.IsForeignKey && c.ForeignTable != "" {
			fmt.Fprintf(&sb, " REFERENCES %s", c.ForeignTable)
			if c.ForeignColumn != "" {
				fmt.Fprintf(&sb, "(%s)", c.ForeignColumn)
			}
		}
		if c.ColumnDefault != "" {
			fmt.Fprintf(&sb, " DEFAULT %s", c.ColumnDefault)
		}
		sb.WriteString("\n")
	}
	if len(d.Indexes) > 0 {
		fmt.Fprintf(&sb, "Indexes: %s\n", strings.Join(d.Indexes, ", "))
	}
	return sb.String()
}
