package question

// DemoQuestions is the built-in set used whenever generation yields nothing.
func DemoQuestions() []Question {
	return []Question{
		{
			Question:    "What is the capital city of France?",
			Options:     []string{"London", "Paris", "Berlin", "Madrid"},
			Correct:     1,
			Hint:        "Think about the most famous city in France.",
			Explanation: "Paris is the capital and largest city of France, known for landmarks like the Eiffel Tower.",
		},
		{
			Question:    "Which continent is Brazil located in?",
			Options:     []string{"North America", "South America", "Africa", "Asia"},
			Correct:     1,
			Hint:        "Brazil is the largest country in its continent.",
			Explanation: "Brazil is located in South America and is the continent's largest country by both area and population.",
		},
		{
			Question:    "What is the longest river in the world?",
			Options:     []string{"Amazon River", "Nile River", "Mississippi River", "Yangtze River"},
			Correct:     1,
			Hint:        "This river flows through northeastern Africa.",
			Explanation: "The Nile River is traditionally considered the longest river in the world, flowing through northeastern Africa.",
		},
	}
}
