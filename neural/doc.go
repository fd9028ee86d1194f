// Package neural defines the data model shared across the classification
// pipeline: samples, windows, feature vectors, classification results, and
// alerts.
//
// The types here are plain values with no behavior beyond validation.
// Ownership follows the data flow: sources produce Samples, the buffer
// materializes Windows, extractors produce FeatureVectors consumed exactly
// once by their paired classifier, and Results are terminal once emitted.
package neural
