package loader

// Column is a header name in one of the source exports. Names are case sensitive.
type Column string

// Contract line export.
const (
	ColBusinessID  Column = "BUSINESS_ID"
	ColName        Column = "NAME"
	ColIndustry    Column = "INDUSTRY"
	ColCurrency    Column = "CURRENCY"
	ColNetTotalUSD Column = "NET_TOTAL_USD"
	ColTier        Column = "TIER"
	ColStartDate   Column = "START_DATE"
	ColEndDate     Column = "END_DATE"
	ColCloseDate   Column = "CLOSE_DATE"
	ColAccountType Column = "ACCOUNT_TYPE"
)

// Daily snapshot exports.
const (
	ColCalendarDate Column = "CALENDAR_DATE"
	ColActiveACV    Column = "ACTIVE_ACV"
	ColDAUs         Column = "DAUS"
	ColMAUs         Column = "MAUS"
)

// Searchable fields usage export.
const (
	ColTextSearch     Column = "TEXT_SEARCH"
	ColPhraseMatch    Column = "PHRASE_MATCH"
	ColNLPFilter      Column = "NLP_FILTER"
	ColSemanticSearch Column = "SEMANTIC_SEARCH"
	ColDocumentSearch Column = "DOCUMENT_SEARCH"
	ColSortable       Column = "SORTABLE"
	ColFacet          Column = "FACET"
	ColStaticFilter   Column = "STATICFILTER"
)

// contractColumns must be present in the contract export. TIER is optional.
var contractColumns = []Column{
	ColBusinessID,
	ColName,
	ColIndustry,
	ColCurrency,
	ColNetTotalUSD,
	ColStartDate,
	ColEndDate,
	ColCloseDate,
	ColAccountType,
}

// SearchableFieldColumns lists the per-algorithm usage columns.
var SearchableFieldColumns = []Column{
	ColTextSearch,
	ColPhraseMatch,
	ColNLPFilter,
	ColSemanticSearch,
	ColDocumentSearch,
	ColSortable,
	ColFacet,
	ColStaticFilter,
}
