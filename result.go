package litepg

// RowFieldDescription describes one column of a result set, produced
// from a RowDescription ($T) message. Immutable once constructed.
type RowFieldDescription struct {
	Name         string
	TableOID     int32
	ColumnAttr   int16
	TypeOID      int32
	TypeSize     int16
	TypeModifier int32
	FormatCode   int16
}

// ParameterDescription describes one parameter of a prepared statement,
// produced from a ParameterDescription ($t) message.
type ParameterDescription struct {
	TypeOID int32
}

// SubResult holds one RowDescription/DataRow*/CommandComplete triple, the
// unit a single embedded statement in a simple-query batch produces.
type SubResult struct {
	Descriptions []RowFieldDescription
	Rows         [][]any
	CommandTag   string
}

// Result aggregates every sub-result produced by one query call, in the
// order the server emitted them. A simple query with several embedded
// statements (SELECT 1; SELECT 2;) produces several sub-results sharing
// one Result.
type Result struct {
	SubResults []SubResult
}

// CommandTags returns every command tag in order, e.g. ["SELECT 1"].
func (r *Result) CommandTags() []string {
	tags := make([]string, len(r.SubResults))
	for i, s := range r.SubResults {
		tags[i] = s.CommandTag
	}
	return tags
}

// CommandTag returns the first command tag, or "" if the result is empty.
// Most callers only ever run a single statement and want this shortcut.
func (r *Result) CommandTag() string {
	if len(r.SubResults) == 0 {
		return ""
	}
	return r.SubResults[0].CommandTag
}

// Descriptions returns the field descriptions of the first sub-result.
func (r *Result) Descriptions() []RowFieldDescription {
	if len(r.SubResults) == 0 {
		return nil
	}
	return r.SubResults[0].Descriptions
}

// Rows returns the decoded rows of the first sub-result.
func (r *Result) Rows() [][]any {
	if len(r.SubResults) == 0 {
		return nil
	}
	return r.SubResults[0].Rows
}
