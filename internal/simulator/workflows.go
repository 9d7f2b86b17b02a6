package simulator

import "time"

// Default workflow shapes per tier. Each call builds a fresh tree because
// execution mutates steps in place.

// DefaultSimpleSteps is a flat pipeline with one level of nesting: fetch,
// validate, cache.
func DefaultSimpleSteps() []*Step {
	return []*Step{
		NewStep("data_fetching", OpProcessing, 100*time.Millisecond,
			NewStep("fetch_db_data", OpDatabase, 150*time.Millisecond),
			NewStep("fetch_api_data", OpHTTP, 200*time.Millisecond),
		),
		NewStep("validate_data", OpValidation, 100*time.Millisecond),
		NewStep("save_to_cache", OpCache, 80*time.Millisecond),
	}
}

// DefaultMediumSteps nests two levels deep: gathering, processing, storage.
func DefaultMediumSteps() []*Step {
	return []*Step{
		NewStep("data_gathering", OpProcessing, 100*time.Millisecond,
			NewStep("database_ops", OpDatabase, 100*time.Millisecond,
				NewStep("read_users", OpDatabase, 150*time.Millisecond),
				NewStep("read_orders", OpDatabase, 180*time.Millisecond),
			),
			NewStep("api_ops", OpHTTP, 100*time.Millisecond,
				NewStep("fetch_inventory", OpHTTP, 220*time.Millisecond),
				NewStep("fetch_pricing", OpHTTP, 160*time.Millisecond),
			),
		),
		NewStep("processing_pipeline", OpProcessing, 120*time.Millisecond,
			NewStep("validation", OpValidation, 80*time.Millisecond,
				NewStep("validate_data", OpValidation, 120*time.Millisecond),
			),
			NewStep("transformation", OpTransformation, 80*time.Millisecond,
				NewStep("transform_data", OpTransformation, 200*time.Millisecond),
			),
		),
		NewStep("storage_ops", OpDatabase, 100*time.Millisecond,
			NewStep("update_cache", OpCache, 90*time.Millisecond),
			NewStep("save_to_db", OpDatabase, 250*time.Millisecond),
		),
	}
}

// DefaultComplexSteps is the full ingest/process/store pipeline used for
// the richest span trees.
func DefaultComplexSteps() []*Step {
	return []*Step{
		NewStep("data_ingestion", OpProcessing, 100*time.Millisecond,
			NewStep("read_database", OpDatabase, 200*time.Millisecond),
			NewStep("fetch_api_data", OpHTTP, 300*time.Millisecond),
			NewStep("read_queue", OpQueue, 150*time.Millisecond),
		),
		NewStep("data_processing", OpProcessing, 150*time.Millisecond,
			NewStep("validate_data", OpValidation, 180*time.Millisecond),
			NewStep("transform_data", OpTransformation, 400*time.Millisecond),
		),
		NewStep("data_storage", OpProcessing, 100*time.Millisecond,
			NewStep("cache_results", OpCache, 120*time.Millisecond),
			NewStep("save_to_database", OpDatabase, 350*time.Millisecond),
			NewStep("publish_event", OpQueue, 180*time.Millisecond),
		),
	}
}

// DefaultErrorSteps is the error-demonstration workflow: the transform
// step inside data_processing is configured to fail, so its parent and the
// run fail while data_storage never starts.
func DefaultErrorSteps() []*Step {
	failing := NewStep("transform_data", OpTransformation, 200*time.Millisecond)
	failing.Fail = true
	failing.FailMessage = "transformation rejected malformed record"

	return []*Step{
		NewStep("data_ingestion", OpProcessing, 100*time.Millisecond,
			NewStep("read_database", OpDatabase, 200*time.Millisecond),
			NewStep("fetch_api_data", OpHTTP, 250*time.Millisecond),
		),
		NewStep("data_processing", OpProcessing, 150*time.Millisecond,
			NewStep("validate_data", OpValidation, 180*time.Millisecond),
			failing,
		),
		NewStep("data_storage", OpProcessing, 100*time.Millisecond,
			NewStep("cache_results", OpCache, 120*time.Millisecond),
			NewStep("save_to_database", OpDatabase, 350*time.Millisecond),
		),
	}
}

// defaultSteps returns the built-in workflow for a variant.
func defaultSteps(variant Variant) []*Step {
	switch variant {
	case VariantSimple:
		return DefaultSimpleSteps()
	case VariantMedium:
		return DefaultMediumSteps()
	default:
		return DefaultComplexSteps()
	}
}

// defaultWorkflowName returns the name used when a request does not supply
// one.
func defaultWorkflowName(variant Variant) string {
	return string(variant) + "_workflow"
}
