package jsoncol

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a JSON document column. Postgres stores it as jsonb. Other dialects store it as
// text, so a scalar document such as 2 or true reads back as the bytes that were written.
type JSON datatypes.JSON

func (JSON) GormDataType() string { return "json" }

func (JSON) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func (j JSON) Value() (driver.Value, error) {
	return datatypes.JSON(j).Value()
}

// Scan also accepts numeric values, which older SQLite files hold for scalar documents
// written while the column had numeric affinity.
func (j *JSON) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	case int64:
		*j = JSON(strconv.FormatInt(v, 10))
	case float64:
		*j = JSON(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		*j = JSON(strconv.FormatBool(v))
	default:
		return fmt.Errorf("jsoncol: cannot scan %T into JSON", value)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	return datatypes.JSON(j).MarshalJSON()
}

func (j *JSON) UnmarshalJSON(b []byte) error {
	return (*datatypes.JSON)(j).UnmarshalJSON(b)
}

func (j JSON) String() string { return string(j) }
