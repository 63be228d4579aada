package planner

type ItemRef struct {
	Path string
}

type Phase1Result struct {
	NewItems     []ItemRef
	DeletedItems []ItemRef
	Changed      []ItemRef
	NeedChecksum []ItemRef
	Identical    []ItemRef
}

type ChecksumData struct {
	ItemRef        ItemRef
	SourceChecksum string
	DestChecksum   string
	Err            error
}
