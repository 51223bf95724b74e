package migrations

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed sql/*/*.sql.tmpl
var templatesFS embed.FS

const defaultDataColumnType = "TEXT"

// TableOptions shapes the sessions table created by the migrations.
type TableOptions struct {
	DataColumn     string
	DataColumnType string
}

type templateData struct {
	DataColumn     string
	DataColumnType string
}

// Render returns the up and down statements for the given database provider.
func Render(provider string, opts TableOptions) (up []string, down []string, err error) {
	if _, err := getDialect(provider); err != nil {
		return nil, nil, err
	}
	if opts.DataColumn == "" {
		return nil, nil, fmt.Errorf("data column name must be specified")
	}

	data := templateData{
		DataColumn:     quoteIdent(provider, opts.DataColumn),
		DataColumnType: opts.DataColumnType,
	}
	if data.DataColumnType == "" {
		data.DataColumnType = defaultDataColumnType
	}

	up, err = render(provider, "create_sessions.up.sql.tmpl", data)
	if err != nil {
		return nil, nil, err
	}
	down, err = render(provider, "create_sessions.down.sql.tmpl", data)
	if err != nil {
		return nil, nil, err
	}
	return up, down, nil
}

func render(provider string, name string, data templateData) ([]string, error) {
	path := "sql/" + provider + "/" + name
	tmpl, err := template.ParseFS(templatesFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migration %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render migration %s: %w", path, err)
	}
	return splitStatements(buf.String()), nil
}

// splitStatements runs one statement per Exec; the MySQL driver rejects
// multi-statement strings unless multiStatements is enabled in the DSN.
func splitStatements(script string) []string {
	var statements []string
	for stmt := range strings.SplitSeq(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func quoteIdent(provider string, ident string) string {
	if provider == "mysql" {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
