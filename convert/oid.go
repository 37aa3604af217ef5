package convert

// OID values for the PostgreSQL system types litepg decodes out of the
// box, matching the real pg_type catalog entries of the same name.
const (
	OIDBool        int32 = 16
	OIDBytea       int32 = 17
	OIDName        int32 = 19
	OIDInt8        int32 = 20
	OIDInt2        int32 = 21
	OIDInt4        int32 = 23
	OIDText        int32 = 25
	OIDOID         int32 = 26
	OIDJSON        int32 = 114
	OIDPoint       int32 = 600
	OIDFloat4      int32 = 700
	OIDFloat8      int32 = 701
	OIDUnknown     int32 = 705
	OIDBPChar      int32 = 1042
	OIDVarchar     int32 = 1043
	OIDDate        int32 = 1082
	OIDTime        int32 = 1083
	OIDTimestamp   int32 = 1114
	OIDTimestampTz int32 = 1184
	OIDInterval    int32 = 1186
	OIDTimeTz      int32 = 1266
	OIDNumeric     int32 = 1700
	OIDUUID        int32 = 2950
	OIDJSONB       int32 = 3802

	// Array types have OIDs of their own in pg_type, not derived from the
	// element type's OID by any fixed offset; litepg tracks only the
	// handful its array decoder needs to recognize rather than the full
	// catalog.
	OIDInt4Array int32 = 1007
	OIDInt8Array int32 = 1016
	OIDTextArray int32 = 1009
)
