package customer

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Job string

const (
	JobAdmin        Job = "admin."
	JobUnknown      Job = "unknown"
	JobUnemployed   Job = "unemployed"
	JobManagement   Job = "management"
	JobHousemaid    Job = "housemaid"
	JobEntrepreneur Job = "entrepreneur"
	JobStudent      Job = "student"
	JobBlueCollar   Job = "blue-collar"
	JobSelfEmployed Job = "self-employed"
	JobRetired      Job = "retired"
	JobTechnician   Job = "technician"
	JobServices     Job = "services"
)

var Jobs = []Job{
	JobAdmin, JobUnknown, JobUnemployed, JobManagement, JobHousemaid, JobEntrepreneur,
	JobStudent, JobBlueCollar, JobSelfEmployed, JobRetired, JobTechnician, JobServices,
}

type Marital string

const (
	MaritalMarried  Marital = "married"
	MaritalDivorced Marital = "divorced"
	MaritalSingle   Marital = "single"
)

var MaritalStatuses = []Marital{MaritalMarried, MaritalDivorced, MaritalSingle}

type Education string

const (
	EducationUnknown   Education = "unknown"
	EducationSecondary Education = "secondary"
	EducationPrimary   Education = "primary"
	EducationTertiary  Education = "tertiary"
)

var EducationLevels = []Education{EducationUnknown, EducationSecondary, EducationPrimary, EducationTertiary}

// YesNo is the raw form of the binary flags before 0/1 encoding.
type YesNo string

const (
	Yes YesNo = "yes"
	No  YesNo = "no"
)

var YesNoValues = []YesNo{Yes, No}

type Contact string

const (
	ContactUnknown   Contact = "unknown"
	ContactTelephone Contact = "telephone"
	ContactCellular  Contact = "cellular"
)

var Contacts = []Contact{ContactUnknown, ContactTelephone, ContactCellular}

type Month string

var Months = []Month{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

type Poutcome string

const (
	PoutcomeUnknown Poutcome = "unknown"
	PoutcomeOther   Poutcome = "other"
	PoutcomeFailure Poutcome = "failure"
	PoutcomeSuccess Poutcome = "success"
)

var Poutcomes = []Poutcome{PoutcomeUnknown, PoutcomeOther, PoutcomeFailure, PoutcomeSuccess}

// EnumError reports a value outside a closed enumeration.
type EnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s: %q is not one of [%s]", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func parseEnum[T ~string](field, value string, allowed []T) (T, error) {
	for _, a := range allowed {
		if string(a) == value {
			return a, nil
		}
	}
	return "", &EnumError{Field: field, Value: value, Allowed: enumStrings(allowed)}
}

func unmarshalEnum[T ~string](field string, data []byte, allowed []T) (T, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return parseEnum(field, s, allowed)
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func (v *Job) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("job", data, Jobs)
	return err
}

func (v *Marital) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("marital", data, MaritalStatuses)
	return err
}

func (v *Education) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("education", data, EducationLevels)
	return err
}

func (v *YesNo) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("yes/no flag", data, YesNoValues)
	return err
}

func (v *Contact) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("contact", data, Contacts)
	return err
}

func (v *Month) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("month", data, Months)
	return err
}

func (v *Poutcome) UnmarshalJSON(data []byte) (err error) {
	*v, err = unmarshalEnum("poutcome", data, Poutcomes)
	return err
}
