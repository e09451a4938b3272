package variant

// SNVSource is implemented by readers of SNV records.
type SNVSource interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (*SNVRecord, error)
}

// SVSource is implemented by readers of SV records.
type SVSource interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (*SVRecord, error)
}
