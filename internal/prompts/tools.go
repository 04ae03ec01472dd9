package prompts

import "fmt"

// The user prompts below are sent to the model verbatim. The trailing
// "Return ONLY a JSON ..." sentence defines the output shape the frontend
// renders, so edits here change the response contract.

// Default returns the registry of the nine built-in tools.
func Default() *Registry {
	return NewRegistry(
		mcqSpec,
		worksheetSpec,
		lessonPlanSpec,
		summarizerSpec,
		proofreadSpec,
		pptSpec,
		reportCardSpec,
		essayGraderSpec,
		textRewriterSpec,
	)
}

var mcqSpec = &ToolSpec{
	Name:         "mcq",
	SystemPrompt: "You are an expert educator.",
	Fields: []Field{
		{Name: "count", Default: "5"},
		{Name: "topic", Default: "science"},
		{Name: "gradeLevel", Default: "high school"},
		{Name: "difficulty", Default: "medium"},
	},
	Temperature: 0.7,
	MaxTokens:   2000,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Create %s multiple choice questions about %s for %s students at %s difficulty. "+
			"Return ONLY a JSON array like: [{'id':1,'question':'text','options':['A','B','C','D'],'answerIndex':0,'explanation':'text'}]",
			v["count"], v["topic"], v["gradeLevel"], v["difficulty"])
	},
}

var worksheetSpec = &ToolSpec{
	Name:         "worksheet",
	SystemPrompt: "You are an expert educator creating worksheets.",
	Fields: []Field{
		{Name: "topic", Default: "science"},
		{Name: "gradeLevel", Default: "middle school"},
		{Name: "count", Default: "10"},
	},
	Temperature: 0.7,
	MaxTokens:   2500,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Create a worksheet about %s for %s with %s questions. "+
			"Return ONLY a JSON object like: {'title':'Worksheet Title','instructions':'Complete all questions',"+
			"'questions':[{'question':'text','type':'mcq|short-answer','options':['A','B','C','D'],'difficulty':'easy|medium|hard','points':1}],"+
			"'answerKey':[{'answer':'text','explanation':'text'}]}",
			v["topic"], v["gradeLevel"], v["count"])
	},
}

var lessonPlanSpec = &ToolSpec{
	Name:         "lessonplan",
	SystemPrompt: "You are an experienced teacher creating lesson plans.",
	Fields: []Field{
		{Name: "topic", Default: "science"},
		{Name: "gradeLevel", Default: "grade 8"},
		{Name: "duration", Default: "45"},
		{Name: "objectives", Default: "general understanding"},
	},
	Temperature: 0.7,
	MaxTokens:   2500,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Create a detailed lesson plan about %s for %s students, duration %s minutes, learning objectives: %s. "+
			"Return ONLY a JSON object like: {'title':'text','duration':45,'objectives':['obj1'],'materials':['item1'],"+
			"'activities':[{'time':10,'activity':'text','description':'text'}],'assessment':'text'}",
			v["topic"], v["gradeLevel"], v["duration"], v["objectives"])
	},
}

var summarizerSpec = &ToolSpec{
	Name:         "summarizer",
	SystemPrompt: "You are an expert at summarizing text concisely.",
	Fields: []Field{
		{Name: "bulletPoints", Default: "5"},
		{Name: "text", Default: ""},
	},
	Temperature: 0.5,
	MaxTokens:   1500,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Summarize this text in %s key bullet points: %s. "+
			"Return ONLY a JSON object like: {'summary':'brief overview','keyPoints':['point1','point2']}",
			v["bulletPoints"], v["text"])
	},
}

var proofreadSpec = &ToolSpec{
	Name:         "proofread",
	SystemPrompt: "You are an expert proofreader and editor.",
	Fields: []Field{
		{Name: "text", Default: ""},
	},
	Temperature: 0.3,
	MaxTokens:   2000,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Proofread and correct this text: %s. "+
			"Return ONLY a JSON object like: {'original':'text','corrected':'text',"+
			"'corrections':[{'type':'grammar|spelling|punctuation','original':'text','correction':'text','explanation':'text'}]}",
			v["text"])
	},
}

var pptSpec = &ToolSpec{
	Name:         "ppt",
	SystemPrompt: "You are an expert at creating presentation outlines.",
	Fields: []Field{
		{Name: "topic", Default: "science"},
		{Name: "slideCount", Default: "8"},
		{Name: "audience", Default: "students"},
	},
	Temperature: 0.7,
	MaxTokens:   2500,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Create a presentation outline about %s with %s slides for %s. "+
			"Return ONLY a JSON object like: {'title':'text','slides':[{'slideNumber':1,'title':'text','content':['bullet1','bullet2'],'notes':'speaker notes'}]}",
			v["topic"], v["slideCount"], v["audience"])
	},
}

var reportCardSpec = &ToolSpec{
	Name:         "reportcard",
	SystemPrompt: "You are an experienced teacher writing thoughtful report card comments.",
	Fields: []Field{
		{Name: "commentCount", Default: "3"},
		{Name: "studentInfo", Default: ""},
		{Name: "focus", Default: "overall performance"},
	},
	Temperature: 0.7,
	MaxTokens:   1500,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Write %s report card comments for a student: %s. Focus on: %s. "+
			"Return ONLY a JSON object like: {'comments':[{'category':'text','comment':'text','tone':'positive|constructive'}]}",
			v["commentCount"], v["studentInfo"], v["focus"])
	},
}

// Grading runs cold so repeated submissions of one essay score consistently.
var essayGraderSpec = &ToolSpec{
	Name: "essaygrader",
	SystemPrompt: "You are an expert essay grader with years of experience in academic writing assessment. \n" +
		"You provide detailed, constructive feedback that helps students improve their writing.\n" +
		"Analyze essays thoroughly across multiple dimensions: thesis strength, argument development, evidence quality, \n" +
		"organization, coherence, grammar, style, and critical thinking. Give specific, actionable feedback.",
	Fields: []Field{
		{Name: "essay", Default: ""},
		{Name: "maxScore", Default: "100"},
		{Name: "rubric", Default: "content, organization, grammar, critical thinking"},
	},
	Temperature: 0.3,
	MaxTokens:   2500,
	render: func(v map[string]string) string {
		return fmt.Sprintf(essayGraderTemplate, v["maxScore"], v["rubric"], v["essay"], v["maxScore"])
	},
}

const essayGraderTemplate = `Carefully grade the following essay. Maximum score: %s

RUBRIC CRITERIA: %s

ESSAY TO GRADE:
%s

INSTRUCTIONS:
1. Read the entire essay carefully
2. Evaluate based on the rubric criteria
3. Assign a score that reflects the actual quality (avoid giving the same score repeatedly)
4. Identify 3-5 specific strengths with examples from the text
5. Identify 3-5 specific areas for improvement with concrete suggestions
6. Provide detailed grammar/style notes if applicable
7. Write an overall summary that ties everything together

Return ONLY a JSON object in this exact format:
{
  "score": <number between 0 and %s>,
  "grade": "<letter grade A-F>",
  "feedback": {
    "strengths": ["specific strength 1 with example", "specific strength 2 with example", "specific strength 3"],
    "improvements": ["specific improvement 1 with actionable advice", "specific improvement 2 with suggestion", "specific improvement 3"],
    "grammar": "Detailed notes on grammar, punctuation, and style issues with specific examples",
    "overall": "Comprehensive summary of the essay's quality, main achievements, and key areas for growth"
  }
}`

var textRewriterSpec = &ToolSpec{
	Name:         "textrewriter",
	SystemPrompt: "You are an expert writer skilled at rewriting text in different styles.",
	Fields: []Field{
		{Name: "style", Default: "professional"},
		{Name: "tone", Default: "neutral"},
		{Name: "audience", Default: "general"},
		{Name: "length", Default: "similar"},
		{Name: "additionalInstructions", Default: "none"},
		{Name: "text", Default: ""},
	},
	Temperature: 0.8,
	MaxTokens:   2000,
	render: func(v map[string]string) string {
		return fmt.Sprintf("Rewrite this text in %s style with %s tone for %s audience at %s length. "+
			"Additional instructions: %s. Text: %s. "+
			"Return ONLY a JSON object like: {'variations':[{'style':'text','rewrittenText':'text','notes':'text'}]}",
			v["style"], v["tone"], v["audience"], v["length"], v["additionalInstructions"], v["text"])
	},
}
