package parsers

import (
	"fmt"
	"io"

	"github.com/username/hostfolio/backend/src/models"
	"github.com/username/hostfolio/backend/src/parsers/airbnb"
)

// Parser turns a platform transaction export into canonical transactions.
type Parser interface {
	Parse(file io.Reader) (*models.ParsedExport, error)
}

// GetParser returns the parser registered for a source platform.
func GetParser(source string) (Parser, error) {
	switch source {
	case "airbnb":
		return airbnb.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser registered for source %q", source)
	}
}
