package gtfsmanager

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pespinel/AuvasaKit/business/data/gtfs"
)

// gtfsRowReader interface defines methods used to read rows from a gtfs csv file and record them to a database
type gtfsRowReader interface {

	// addRow should read the current line from gtfsFileParser and record the resulting record with gtfsDataSetTx
	// or store the record to be recorded in a batch later via flush
	addRow(parser *gtfsFileParser, dsTx *gtfs.DataSetTransaction) error

	// flush should record any pending records with gtfsDataSetTx, if any
	flush(dsTx *gtfs.DataSetTransaction) error
}

// gtfsFileParser holds position in a gtfs csv file and provides typed column
// access for the current row. Extraction errors are collected with the line
// number they happened on.
type gtfsFileParser struct {
	Filename   string
	loc        *time.Location
	line       int
	csvReader  *csv.Reader
	headers    []string
	currentRow []string
	errors     []error
}

// makeGTFSFileParser creates a gtfsFileParser from an io.Reader. Dates in the
// file are interpreted in loc, the agency's operating timezone.
func makeGTFSFileParser(r io.Reader, filename string, loc *time.Location) (*gtfsFileParser, error) {
	csvReader := csv.NewReader(r)
	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to read header in %s: %w", filename, err)
	}
	removeBOMIfPresent(headers)
	return &gtfsFileParser{
		Filename:  filename,
		loc:       loc,
		line:      1,
		csvReader: csvReader,
		headers:   headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 || len(headers[0]) < 1 {
		return
	}
	runes := []rune(headers[0])
	if runes[0] == '\uFEFF' {
		headers[0] = string(runes[1:])
	}
}

// nextLine moves csvReader one line forward
func (p *gtfsFileParser) nextLine() error {
	var err error
	p.currentRow, err = p.csvReader.Read()
	p.line++
	return err
}

// getString retrieves a string column, empty when missing
func (p *gtfsFileParser) getString(name string, optional bool) string {
	result := p.getStringPointer(name, optional)
	if result == nil {
		return ""
	}
	return *result
}

// getStringPointer retrieves a string column, nil when missing
func (p *gtfsFileParser) getStringPointer(name string, optional bool) *string {
	result, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
	}
	if result != nil && *result == "" {
		return nil
	}
	return result
}

// getInt retrieves an int column, zero when missing
func (p *gtfsFileParser) getInt(name string, optional bool) int {
	result := p.getIntPointer(name, optional)
	if result == nil {
		return 0
	}
	return *result
}

// getIntPointer retrieves an int column, nil when missing
func (p *gtfsFileParser) getIntPointer(name string, optional bool) *int {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if value == nil || *value == "" {
		return nil
	}
	result, err := strconv.Atoi(*value)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return nil
	}
	return &result
}

// getFloat64 retrieves a float64 column, zero when missing
func (p *gtfsFileParser) getFloat64(name string, optional bool) float64 {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return 0
	}
	if value == nil || *value == "" {
		return 0
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return 0
	}
	return result
}

// getFloat64Pointer retrieves a float64 column, nil when missing
func (p *gtfsFileParser) getFloat64Pointer(name string, optional bool) *float64 {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if value == nil || *value == "" {
		return nil
	}
	result, err := strconv.ParseFloat(*value, 64)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return nil
	}
	return &result
}

// getScheduleTime retrieves a gtfs HH:MM:SS column as seconds after midnight of
// the service date, zero when missing
func (p *gtfsFileParser) getScheduleTime(name string, optional bool) int {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return 0
	}
	if value == nil || strings.TrimSpace(*value) == "" {
		if !optional {
			p.errors = append(p.errors, fmt.Errorf("missing required value in column %s", name))
		}
		return 0
	}
	result, err := gtfs.ParseScheduleTime(strings.TrimSpace(*value))
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return 0
	}
	return result
}

// getDatePointer retrieves a gtfs YYYYMMDD column as a time.Time in the parser's
// location, nil when missing
func (p *gtfsFileParser) getDatePointer(name string, optional bool) *time.Time {
	value, err := p.findValue(name, optional)
	if err != nil {
		p.errors = append(p.errors, err)
		return nil
	}
	if value == nil || *value == "" {
		return nil
	}
	result, err := gtfs.ParseDate(*value, p.loc)
	if err != nil {
		p.errors = append(p.errors, columnError(name, err))
		return nil
	}
	return &result
}

// getDate retrieves a gtfs YYYYMMDD column, the zero time.Time when missing
func (p *gtfsFileParser) getDate(name string, optional bool) time.Time {
	result := p.getDatePointer(name, optional)
	if result == nil {
		return time.Time{}
	}
	return *result
}

// findValue retrieves the raw string value of a column from the current row.
// Returns nil when the column isn't present and optional is true.
func (p *gtfsFileParser) findValue(name string, optional bool) (*string, error) {
	index := -1
	for i, header := range p.headers {
		if header == name {
			index = i
			break
		}
	}
	if index < 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to find header: %s", name)
	}
	if len(p.currentRow) <= index {
		return nil, fmt.Errorf("row is too short to hold column %v named %s", index, name)
	}
	value := p.currentRow[index]
	if value == "" && !optional {
		return nil, fmt.Errorf("missing required value in column %s", name)
	}
	return &value, nil
}

// getError retrieves the errors encountered so far in the file
func (p *gtfsFileParser) getError() error {
	if len(p.errors) > 0 {
		return fmt.Errorf("in file %v, line %v: %v", p.Filename, p.line, p.errors)
	}
	return nil
}

func columnError(name string, err error) error {
	return fmt.Errorf("unable to parse column %s: %v", name, err)
}

// loadGTFSRows iterates over every row in the parser and feeds them into
// rowReader. Reading halts on the first error.
func loadGTFSRows(dsTx *gtfs.DataSetTransaction, parser *gtfsFileParser, rowReader gtfsRowReader) error {
	for {
		err := parser.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err = rowReader.addRow(parser, dsTx); err != nil {
			parser.errors = append(parser.errors, err)
			return parser.getError()
		}
	}
	return rowReader.flush(dsTx)
}

// gtfsFiles holds the files of a gtfs zip the loader knows how to read
type gtfsFiles struct {
	stopFile         *zip.File
	routeFile        *zip.File
	calendarFile     *zip.File
	calendarDateFile *zip.File
	tripFile         *zip.File
	stopTimeFile     *zip.File
	shapeFile        *zip.File
}

// newGTFSFiles locates the gtfs files inside zipReader.
// Returns an error when a required file is missing; calendar_dates.txt and
// shapes.txt are optional.
func newGTFSFiles(zipReader *zip.ReadCloser) (*gtfsFiles, error) {
	files := gtfsFiles{}
	for _, f := range zipReader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch f.Name {
		case "stops.txt":
			files.stopFile = f
		case "routes.txt":
			files.routeFile = f
		case "calendar.txt":
			files.calendarFile = f
		case "calendar_dates.txt":
			files.calendarDateFile = f
		case "trips.txt":
			files.tripFile = f
		case "stop_times.txt":
			files.stopTimeFile = f
		case "shapes.txt":
			files.shapeFile = f
		}
	}
	missing := files.missingRequiredFiles()
	if len(missing) > 0 {
		return nil, fmt.Errorf("gtfs zip file is missing the following file(s): %s",
			strings.Join(missing, ","))
	}
	return &files, nil
}

func (f *gtfsFiles) missingRequiredFiles() []string {
	missing := make([]string, 0)
	if f.stopFile == nil {
		missing = append(missing, "stops.txt")
	}
	if f.routeFile == nil {
		missing = append(missing, "routes.txt")
	}
	if f.calendarFile == nil {
		missing = append(missing, "calendar.txt")
	}
	if f.tripFile == nil {
		missing = append(missing, "trips.txt")
	}
	if f.stopTimeFile == nil {
		missing = append(missing, "stop_times.txt")
	}
	return missing
}

// loadGtfsZipFile reads the local zip file at localGTFSFilePath and records each
// recognized file under the DataSet transaction
func loadGtfsZipFile(log *log.Logger, dsTx *gtfs.DataSetTransaction,
	localGTFSFilePath string, loc *time.Location) error {
	r, err := zip.OpenReader(localGTFSFilePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("unable to close zip file %s: %v", localGTFSFilePath, err)
		}
	}()

	files, err := newGTFSFiles(r)
	if err != nil {
		return err
	}
	return loadGtfsFiles(log, files, dsTx, loc)
}

// loadGtfsFiles loads each gtfs file with its row reader
func loadGtfsFiles(log *log.Logger, files *gtfsFiles,
	dsTx *gtfs.DataSetTransaction, loc *time.Location) error {
	loads := []struct {
		file   *zip.File
		reader gtfsRowReader
	}{
		{files.stopFile, &stopRowReader{}},
		{files.routeFile, &routeRowReader{}},
		{files.calendarFile, &calendarRowReader{}},
		{files.calendarDateFile, &calendarDateRowReader{}},
		{files.tripFile, &tripRowReader{}},
		{files.stopTimeFile, &stopTimeRowReader{}},
		{files.shapeFile, &shapeRowReader{}},
	}
	for _, load := range loads {
		if load.file == nil {
			continue
		}
		if err := loadGtfsFile(log, dsTx, load.reader, load.file, loc); err != nil {
			return err
		}
	}
	return nil
}

// loadGtfsFile reads one zipped gtfs file with rowReader
func loadGtfsFile(log *log.Logger, dsTx *gtfs.DataSetTransaction,
	rowReader gtfsRowReader, f *zip.File, loc *time.Location) error {
	start := time.Now()
	rc, err := f.Open()
	if err != nil {
		return err
	}
	parser, err := makeGTFSFileParser(rc, f.Name, loc)
	if err != nil {
		return err
	}
	log.Printf("Loading %s", parser.Filename)
	if err = loadGTFSRows(dsTx, parser, rowReader); err != nil {
		return err
	}
	if err = rc.Close(); err != nil {
		return err
	}
	log.Printf("Loaded %d rows in file %s in %d seconds", parser.line, parser.Filename,
		time.Now().Unix()-start.Unix())
	return nil
}
