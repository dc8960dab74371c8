package owner

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marcboeker/go-duckdb"
)

// OVOPrefix starts every organisation identifier in the Flemish registry.
const OVOPrefix = "OVO"

// LoadCodeTable reads the organisation export: a ';'-separated CSV with a
// header row, the OVO id in the first column and the road-register code in
// the second.
func LoadCodeTable(ctx context.Context, path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT * FROM read_csv(%s, delim=';', header=true, all_varchar=true)",
		quoteLiteral(path))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading organisation table %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) < 2 {
		return nil, fmt.Errorf("organisation table %s: expected at least 2 columns, got %d", path, len(cols))
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	codes := make(map[string]string)
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		ovo := strings.TrimSpace(values[0].String)
		code := strings.TrimSpace(values[1].String)
		if ovo == "" || code == "" {
			continue
		}
		codes[code] = ovo
	}
	return codes, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LoadAliasBlocks reads owner aliases stored as blocks of four lines: name,
// in-use flag, alias and OVO id. Blocks flagged "Nee" and blocks without an
// OVO id are skipped. Reading stops at EOF or at a block of four empty lines.
func LoadAliasBlocks(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	next := func() string {
		if !scanner.Scan() {
			return ""
		}
		return strings.TrimRight(scanner.Text(), "\r")
	}

	names := make(map[string]string)
	for {
		name, flag, alias, ovo := next(), next(), next(), next()
		if name == "" && flag == "" && alias == "" && ovo == "" {
			break
		}
		if flag == "Nee" || !strings.HasPrefix(ovo, OVOPrefix) {
			continue
		}
		names[name] = ovo
		if strings.TrimSpace(alias) != "" {
			names[alias] = ovo
		}
	}
	return names, scanner.Err()
}

// LoadAliasFile reads alias blocks from the file at path.
func LoadAliasFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAliasBlocks(f)
}

// LoadTables builds resolver tables from the organisation export and the
// alias file. Either path may be empty.
func LoadTables(ctx context.Context, codesPath, aliasesPath string) (Tables, error) {
	tables := Tables{Codes: map[string]string{}, Names: map[string]string{}}
	if codesPath != "" {
		codes, err := LoadCodeTable(ctx, codesPath)
		if err != nil {
			return Tables{}, err
		}
		tables.Codes = codes
	}
	if aliasesPath != "" {
		names, err := LoadAliasFile(aliasesPath)
		if err != nil {
			return Tables{}, err
		}
		tables.Names = names
	}
	return tables, nil
}
