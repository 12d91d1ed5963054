package constants

// This is set during compilation. See build_and_package.sh in the ops repo.
var Version = "latest"

const ContentType = "Content-Type"
const JsonContentType = "application/json"
const FHIRJsonContentType = "application/fhir+json"

// DefaultModelName is the model scored when a request names none.
const DefaultModelName = "CMS-HCC Model V28"
