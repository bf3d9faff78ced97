package models

// Reason is a machine-readable code attached to every skip or exclusion.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonUnparseablePrice   Reason = "unparseable_price"
	ReasonUnresolvedSubject  Reason = "unresolved_subject"
	ReasonMissingYear        Reason = "missing_year"
	ReasonNoPriceInWindow    Reason = "no_price_in_window"
	ReasonBulkListing        Reason = "bulk_listing"
	ReasonUntrackedAuthority Reason = "untracked_authority_or_ambiguous_grade"
)

var reasonDescriptions = map[Reason]string{
	ReasonUnparseablePrice:   "no usable price",
	ReasonUnresolvedSubject:  "no usable subject name",
	ReasonMissingYear:        "no plausible card year",
	ReasonNoPriceInWindow:    "no price within correlation window",
	ReasonBulkListing:        "bulk listing",
	ReasonUntrackedAuthority: "graded by untracked authority or ambiguous grade",
}

// Description returns the operator-facing wording for a reason code.
func (r Reason) Description() string {
	if d, ok := reasonDescriptions[r]; ok {
		return d
	}
	return string(r)
}
