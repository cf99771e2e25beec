package llmscript

// ScriptPrompt instructs the model to write the scene list for a bulletin.
const ScriptPrompt = `You write scripts for a short television news bulletin.
Respond with JSON only, using this shape:
{"title": string, "description": string, "tags": [string],
 "scenes": [{"speaker": string, "text": string, "title": string,
             "visual_prompt": string, "shot_type": string, "scene_type": string}]}
Rules:
- The first scene has scene_type "intro" and the last has scene_type "outro".
- Every story gets at least one scene with scene_type "story" or "interview".
- shot_type is one of anchor_desk, closeup, wide, broll, split_screen.
- speaker is a short lowercase role such as "anchor" or "reporter".
- text is what the speaker says aloud, at most three sentences.
- title is a lower-third headline of at most eight words.`

// ReviewPrompt instructs the model to check a generated script.
const ReviewPrompt = `You are the editor of a television news bulletin.
Review the script you are given for factual tone, clarity and pacing.
Respond with JSON only: {"approved": bool, "notes": string, "script": <the script, corrected if needed>}.
Keep the same JSON shape for the script and do not add or remove stories.`
