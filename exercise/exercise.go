// Package exercise holds the sample problem shown next to the editor.
package exercise

// Exercise is a single practice problem.
type Exercise struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Question    string `json:"question"`
	StarterCode string `json:"starter_code"`
}

// Sample is the exercise every session starts with.
var Sample = Exercise{
	ID:    "count-positive",
	Title: "Count positive numbers",
	Question: "Write a Python function that takes a list of integers and returns the count " +
		"of positive elements. Example: input [1, -2, 3, 4, -5] returns 3.",
	StarterCode: `def count_positive(numbers):
    # Start writing your code here
    pass

# Example usage:
# print(count_positive([1, -2, 3, 4, -5]))  # Output: 3
`,
}
