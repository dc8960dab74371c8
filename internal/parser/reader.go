package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxRecordLine = 16 * 1024 * 1024

// ReadRecords splits a record file into raw records. A document starting with
// '[' is read as a JSON array; anything else as JSON Lines, one record per line.
func ReadRecords(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		return readArray(br)
	}
	return readLines(br)
}

// ReadRecordsFile reads the records of the file at path.
func ReadRecordsFile(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// readArray splits a JSON array into its raw elements without decoding them,
// so a broken element only fails its own record in Parse. br is positioned
// on the opening bracket.
func readArray(br *bufio.Reader) ([][]byte, error) {
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return splitArray(data)
}

func splitArray(data []byte) ([][]byte, error) {
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("reading record array: missing '['")
	}

	var (
		records  [][]byte
		depth    int
		inString bool
		escaped  bool
		start    = 1
	)
	emit := func(end int) {
		elem := bytes.TrimSpace(data[start:end])
		records = append(records, bytes.Clone(elem))
	}

	for i := 1; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
				continue
			}
			if c == '}' {
				return nil, fmt.Errorf("reading record array: unexpected '}' at offset %d", i)
			}
			// closing bracket of the array
			if len(bytes.TrimSpace(data[start:i])) > 0 || len(records) > 0 {
				emit(i)
			}
			if rest := bytes.TrimSpace(data[i+1:]); len(rest) > 0 {
				return nil, fmt.Errorf("reading record array: trailing data at offset %d", i+1)
			}
			return records, nil
		case ',':
			if depth == 0 {
				emit(i)
				start = i + 1
			}
		}
	}
	return nil, errors.New("reading record array: unexpected end of input")
}

func readLines(br *bufio.Reader) ([][]byte, error) {
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	var records [][]byte
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		records = append(records, bytes.Clone(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading record lines: %w", err)
	}
	return records, nil
}
