package domain

// SubjectType differentiates member vs customer tokens.
type SubjectType string

const (
	SubjectTypeMember   SubjectType = "MEMBER"
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)
