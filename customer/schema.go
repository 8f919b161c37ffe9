package customer

// Schema returns the JSON schema of Record, with every enum spelled out.
func Schema() map[string]interface{} {
	integer := map[string]interface{}{"type": "integer"}
	enum := func(values []string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "enum": values}
	}

	properties := map[string]interface{}{
		"age":       integer,
		"job":       enum(enumStrings(Jobs)),
		"marital":   enum(enumStrings(MaritalStatuses)),
		"education": enum(enumStrings(EducationLevels)),
		"default":   enum(enumStrings(YesNoValues)),
		"balance":   map[string]interface{}{"type": "number"},
		"housing":   enum(enumStrings(YesNoValues)),
		"loan":      enum(enumStrings(YesNoValues)),
		"contact":   enum(enumStrings(Contacts)),
		"day":       integer,
		"month":     enum(enumStrings(Months)),
		"duration":  integer,
		"campaign":  integer,
		"pdays":     integer,
		"previous":  integer,
		"poutcome":  enum(enumStrings(Poutcomes)),
	}

	return map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      "CustomerRecord",
		"type":       "object",
		"properties": properties,
		"required":   Fields(),
	}
}

// Fields lists the record's JSON field names in declaration order.
func Fields() []string {
	return []string{
		"age", "job", "marital", "education", "default", "balance", "housing", "loan",
		"contact", "day", "month", "duration", "campaign", "pdays", "previous", "poutcome",
	}
}
