package roster

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LMS roster export parsing

// Definition of fields in a roster export
type RosterDefinition struct {
	StudentNoField string
	NameField      string
	EmailField     string
	StatusField    string

	ActiveStatus string

	Language string // Language code, e.g. "en", "fi"
}

// Known field names in roster exports, in different languages
// Note: The actual values should be filled in according to the specific CSV formats used. The LMS might change these nillywilly
var RosterDefinitions = []RosterDefinition{
	// English roster definition
	{
		StudentNoField: "STUDENT NUMBER",
		NameField:      "NAME",
		EmailField:     "PRIMARY E-MAIL",
		StatusField:    "ENROLMENT STATUS",
		ActiveStatus:   "Enrolled",
		Language:       "en",
	},

	// Finnish roster definition
	{
		StudentNoField: "OPISKELIJANUMERO",
		NameField:      "NIMI",
		EmailField:     "ENSISIJAINEN SÄHKÖPOSTI",
		StatusField:    "ILMOITTAUTUMISEN TILA",
		ActiveStatus:   "Vahvistettu",
		Language:       "fi",
	},
}

// Row is one student line from a roster export.
type Row struct {
	StudentNo string
	Name      string
	Email     string
	Active    bool
}

// ParseFile reads a roster export from disk.
func ParseFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a tab-delimited roster export. Exports come UTF-16 with a
// BOM straight out of the LMS; plain UTF-8 is accepted too.
func Parse(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)

	// Detect BOM and decode UTF-16 if present.
	var src io.Reader = br
	if bom, err := br.Peek(2); err == nil && len(bom) == 2 {
		if bom[0] == 0xFE && bom[1] == 0xFF || bom[0] == 0xFF && bom[1] == 0xFE {
			utf16bom := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
			src = transform.NewReader(br, utf16bom)
		}
	}

	reader := csv.NewReader(src)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = 0

	// Read header
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster header: %w", err)
	}

	// Find index of relevant fields
	var idxStudentNo, idxName, idxEmail, idxStatus int
	var def RosterDefinition
	found := false

	for _, def = range RosterDefinitions {
		idxStudentNo, idxName, idxEmail, idxStatus = -1, -1, -1, -1

		for i, h := range headers {
			switch strings.TrimSpace(h) {
			case def.StudentNoField:
				idxStudentNo = i
			case def.NameField:
				idxName = i
			case def.EmailField:
				idxEmail = i
			case def.StatusField:
				idxStatus = i
			}
		}
		if idxEmail != -1 && idxStatus != -1 {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("roster file missing required fields")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading roster: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		email := strings.TrimSpace(record[idxEmail])
		if email == "" {
			continue
		}

		row := Row{
			Email:  email,
			Active: strings.TrimSpace(record[idxStatus]) == def.ActiveStatus,
		}
		if idxStudentNo != -1 {
			row.StudentNo = strings.TrimSpace(record[idxStudentNo])
		}
		if idxName != -1 {
			row.Name = strings.TrimSpace(record[idxName])
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ListFiles scans a folder for roster CSV files.
func ListFiles(root string) ([]string, error) {
	var files []string

	// If path is relative, resolve using cwd
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("unable to get current working directory: %w", err)
		}
		root = filepath.Join(cwd, root)
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("roster folder does not exist: %s", root)
		}
		return nil, fmt.Errorf("error checking roster folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("roster folder is not a directory: %s", root)
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
