package database

import (
	"regexp"
	"strings"
)

// ColumnFamily groups column types that block online index rebuilds
type ColumnFamily string

const (
	ColumnFamilyNone      ColumnFamily = ""
	ColumnFamilyLargeBlob ColumnFamily = "large-object"
	ColumnFamilyLargeText ColumnFamily = "large-text"
	ColumnFamilyXML       ColumnFamily = "xml"
)

var incompatibleFamilies = map[string]ColumnFamily{
	// binary / large object
	"bytea":          ColumnFamilyLargeBlob,
	"blob":           ColumnFamilyLargeBlob,
	"tinyblob":       ColumnFamilyLargeBlob,
	"mediumblob":     ColumnFamilyLargeBlob,
	"longblob":       ColumnFamilyLargeBlob,
	"image":          ColumnFamilyLargeBlob,
	"varbinary(max)": ColumnFamilyLargeBlob,
	"oid":            ColumnFamilyLargeBlob,
	"lo":             ColumnFamilyLargeBlob,

	// large text
	"text":          ColumnFamilyLargeText,
	"ntext":         ColumnFamilyLargeText,
	"clob":          ColumnFamilyLargeText,
	"tinytext":      ColumnFamilyLargeText,
	"mediumtext":    ColumnFamilyLargeText,
	"longtext":      ColumnFamilyLargeText,
	"varchar(max)":  ColumnFamilyLargeText,
	"nvarchar(max)": ColumnFamilyLargeText,

	"xml": ColumnFamilyXML,
}

var whitespace = regexp.MustCompile(`\s+`)

// normalizeTypeName lowercases a declared type and strips array suffixes and
// redundant whitespace, so "VARCHAR ( MAX )" and "varchar(max)" compare equal.
func normalizeTypeName(typeName string) string {
	t := strings.ToLower(strings.TrimSpace(typeName))
	t = strings.TrimSuffix(t, "[]")
	t = whitespace.ReplaceAllString(t, "")
	return t
}

// IncompatibleColumnFamily reports which online-incompatible family a declared
// column type belongs to, or ColumnFamilyNone.
func IncompatibleColumnFamily(typeName string) ColumnFamily {
	return incompatibleFamilies[normalizeTypeName(typeName)]
}

// HasIncompatibleColumn returns the first referenced column type that blocks online operations
func HasIncompatibleColumn(columnTypes []string) (string, bool) {
	for _, t := range columnTypes {
		if IncompatibleColumnFamily(t) != ColumnFamilyNone {
			return t, true
		}
	}
	return "", false
}
