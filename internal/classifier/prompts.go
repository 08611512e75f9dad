package classifier

// keywordSystemPrompt instructs the model to emit a strict JSON verdict with
// retrieval keywords that do not already appear in the content.
const keywordSystemPrompt = `You are an expert at evaluating content and generating relevant keywords.
Your task is to ONLY delete content that is completely useless.
ALWAYS KEEP content unless it is:
- Completely empty
- Only navigation links with no text
- Only social media buttons/links
- Only generic 'Contact Us' or 'Menu' text

For content worth keeping, generate 5-10 KEYWORDS that:
- DO NOT already exist in the content
- Are semantically related to the content
- Would help a vector search engine find this content
- Use precise terminology for RAG retrieval

Respond with a JSON object of the form {"keep": <boolean>, "keywords": "<comma-separated keywords>"}.
Use false for keep and an empty string for keywords when deleting.`

// summarySystemPrompt instructs the model to answer with the line-oriented
// KEEP/DELETE protocol: verdict, single-sentence summary, then the content.
const summarySystemPrompt = `You are an expert at evaluating content.
Your task is to ONLY delete content that is completely useless.

ALWAYS KEEP content unless it is:
- Completely empty
- Only navigation links with no text
- Only social media buttons/links
- Only generic 'Contact Us' or 'Menu' text

For all other content, even if minimal:
1. Keep the content
2. Generate a SINGLE SENTENCE summary that:
   - Describes the overall topic/purpose of the chunk
   - Focuses on what information the chunk contains
   - Avoids listing specific items from the content
   - Uses precise terminology for RAG retrieval
   - Includes key descriptive words not in content if they would aid retrieval
3. Return 'KEEP' followed by summary and content

Format response as:
KEEP
[Single-sentence summary]
[Content]
or
DELETE`

const userPromptPrefix = "Process this content:\n\n"
