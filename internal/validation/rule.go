package validation

// Kind names a constraint. Predicates are looked up by Kind in a Registry.
type Kind int

const (
	Required Kind = iota + 1
	// Sometimes skips the remaining rules of a field that was not submitted
	// or is empty.
	Sometimes
	Min
	Max
	Numeric
	AlphaDash
	Email
	In
	Exists
	Unique
	Confirmed
	Same
	ValidName
	StrongPassword
	ValidQuery
	// DisplayName allows letters, digits, spaces, dashes and underscores.
	DisplayName
	ValidPassword
	File
	MaxFileSize
	Mimes
)

var kindNames = map[Kind]string{
	Required:       "required",
	Sometimes:      "sometimes",
	Min:            "min",
	Max:            "max",
	Numeric:        "numeric",
	AlphaDash:      "alpha_dash",
	Email:          "email",
	In:             "in",
	Exists:         "exists",
	Unique:         "unique",
	Confirmed:      "confirmed",
	Same:           "same",
	ValidName:      "valid_name",
	StrongPassword: "strong_password",
	ValidQuery:     "valid_query",
	DisplayName:    "display_name",
	ValidPassword:  "valid_password",
	File:           "file",
	MaxFileSize:    "max_file_size",
	Mimes:          "mimes",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Rule is one parameterised constraint.
type Rule struct {
	Kind Kind
	// N is the bound of Min, Max and MaxFileSize (kilobytes).
	N int
	// Values holds the allowed set for In and extensions for Mimes.
	Values []string
	Table  string
	Column string
	// IgnoreID excludes the record being edited from Unique.
	IgnoreID uint
	// Other is the sibling field compared by Same.
	Other string
	// Hash is the stored password hash checked by ValidPassword.
	Hash string
	// Message overrides the registry message for this rule.
	Message string
}

func (r Rule) WithMessage(msg string) Rule {
	r.Message = msg
	return r
}

func RequiredRule() Rule       { return Rule{Kind: Required} }
func SometimesRule() Rule      { return Rule{Kind: Sometimes} }
func MinRule(n int) Rule       { return Rule{Kind: Min, N: n} }
func MaxRule(n int) Rule       { return Rule{Kind: Max, N: n} }
func NumericRule() Rule        { return Rule{Kind: Numeric} }
func AlphaDashRule() Rule      { return Rule{Kind: AlphaDash} }
func EmailRule() Rule          { return Rule{Kind: Email} }
func ConfirmedRule() Rule      { return Rule{Kind: Confirmed} }
func ValidNameRule() Rule      { return Rule{Kind: ValidName} }
func StrongPasswordRule() Rule { return Rule{Kind: StrongPassword} }
func ValidQueryRule() Rule     { return Rule{Kind: ValidQuery} }
func DisplayNameRule() Rule    { return Rule{Kind: DisplayName} }
func FileRule() Rule           { return Rule{Kind: File} }

func InRule(values ...string) Rule { return Rule{Kind: In, Values: values} }

func ExistsRule(table, column string) Rule {
	return Rule{Kind: Exists, Table: table, Column: column}
}

func UniqueRule(table, column string, ignoreID uint) Rule {
	return Rule{Kind: Unique, Table: table, Column: column, IgnoreID: ignoreID}
}

func SameRule(other string) Rule { return Rule{Kind: Same, Other: other} }

func ValidPasswordRule(hash string) Rule { return Rule{Kind: ValidPassword, Hash: hash} }

func MaxFileSizeRule(kilobytes int) Rule { return Rule{Kind: MaxFileSize, N: kilobytes} }

func MimesRule(extensions ...string) Rule { return Rule{Kind: Mimes, Values: extensions} }

// Field binds an ordered rule list to one input name. Label is used in
// messages and defaults to Name.
type Field struct {
	Name  string
	Label string
	Rules []Rule
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func (f Field) has(kind Kind) bool {
	for _, r := range f.Rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// Ruleset is evaluated field by field in declaration order.
type Ruleset []Field
