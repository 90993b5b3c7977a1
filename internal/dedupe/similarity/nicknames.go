package similarity

// nicknameCanon maps common diminutives and spelling variants to one canonical
// given name. Keys and values are folded forms.
var nicknameCanon = map[string]string{
	"jon": "john", "johnny": "john", "jack": "john", "johnnie": "john", "jonathan": "john", "johann": "john", "johannes": "john", "juan": "john", "jean": "john", "giovanni": "john", "ivan": "john", "sean": "john", "shaun": "john",
	"will": "william", "bill": "william", "billy": "william", "willie": "william", "willy": "william", "liam": "william", "wilhelm": "william", "guillaume": "william",
	"bob": "robert", "rob": "robert", "robbie": "robert", "bobby": "robert", "bert": "robert", "roberto": "robert",
	"dick": "richard", "rick": "richard", "rich": "richard", "ricky": "richard", "ricardo": "richard",
	"jim": "james", "jimmy": "james", "jamie": "james", "diego": "james", "jacob": "james", "santiago": "james",
	"mike": "michael", "mick": "michael", "mickey": "michael", "miguel": "michael", "michel": "michael", "mikhail": "michael",
	"tom": "thomas", "tommy": "thomas", "tomas": "thomas",
	"joe": "joseph", "joey": "joseph", "jose": "joseph", "giuseppe": "joseph", "josef": "joseph",
	"chuck": "charles", "charlie": "charles", "carlos": "charles", "karl": "charles", "carl": "charles", "carlo": "charles",
	"dave": "david", "davey": "david",
	"dan": "daniel", "danny": "daniel",
	"ed": "edward", "eddie": "edward", "ted": "edward", "ned": "edward", "eduardo": "edward",
	"fred": "frederick", "freddie": "frederick", "fritz": "frederick", "friedrich": "frederick",
	"frank": "francis", "francisco": "francis", "franz": "francis", "francois": "francis", "frances": "francis",
	"hank": "henry", "harry": "henry", "heinrich": "henry", "henri": "henry", "enrique": "henry",
	"tony": "anthony", "antonio": "anthony", "anton": "anthony",
	"andy": "andrew", "drew": "andrew", "andreas": "andrew", "andre": "andrew", "andres": "andrew",
	"pete": "peter", "pedro": "peter", "pierre": "peter", "pietro": "peter",
	"steve": "stephen", "steven": "stephen", "stefan": "stephen", "esteban": "stephen",
	"al": "albert", "bertie": "albert",
	"alex": "alexander", "sandy": "alexander", "alejandro": "alexander", "alessandro": "alexander",
	"ben": "benjamin", "benny": "benjamin",
	"sam": "samuel", "sammy": "samuel",
	"matt": "matthew", "mateo": "matthew", "matthias": "matthew",
	"nick": "nicholas", "nicolas": "nicholas", "klaus": "nicholas", "nikolai": "nicholas",
	"greg": "gregory",
	"larry": "lawrence", "laurence": "lawrence", "lorenzo": "lawrence",
	"ken": "kenneth", "kenny": "kenneth",
	"walt": "walter", "wally": "walter",
	"ray": "raymond",
	"gene": "eugene",
	"abe": "abraham",
	"zeke": "ezekiel",
	"eli": "elijah",
	"liz": "elizabeth", "beth": "elizabeth", "betty": "elizabeth", "betsy": "elizabeth", "eliza": "elizabeth", "lizzie": "elizabeth", "elisabeth": "elizabeth", "isabel": "elizabeth", "elsa": "elizabeth",
	"peggy": "margaret", "maggie": "margaret", "meg": "margaret", "marge": "margaret", "margie": "margaret", "greta": "margaret", "margarita": "margaret", "marguerite": "margaret", "rita": "margaret",
	"polly": "mary", "molly": "mary", "mae": "mary", "maria": "mary", "marie": "mary", "mamie": "mary", "miriam": "mary",
	"kate": "catherine", "katie": "catherine", "kathy": "catherine", "cathy": "catherine", "katherine": "catherine", "kathryn": "catherine", "katharina": "catherine", "catalina": "catherine", "kitty": "catherine",
	"annie": "ann", "anna": "ann", "anne": "ann", "nancy": "ann", "hannah": "ann", "nan": "ann",
	"sue": "susan", "susie": "susan", "suzanne": "susan", "susanna": "susan",
	"patty": "patricia", "pat": "patricia", "trish": "patricia", "tricia": "patricia",
	"jenny": "jennifer", "jen": "jennifer",
	"dot": "dorothy", "dottie": "dorothy", "dolly": "dorothy",
	"sally": "sarah", "sara": "sarah", "sadie": "sarah",
	"nell": "eleanor", "nellie": "eleanor", "ellie": "eleanor", "elena": "eleanor", "helen": "eleanor", "helena": "eleanor",
	"ginny": "virginia",
	"jo": "josephine", "josie": "josephine",
	"vicky": "victoria",
	"becky": "rebecca",
	"abby": "abigail",
	"libby": "elizabeth",
	"fanny": "frances",
	"millie": "mildred",
	"lou": "louis", "luis": "louis", "ludwig": "louis", "luigi": "louis",
}

// canonicalGiven folds a given name onto its canonical form.
func canonicalGiven(name string) string {
	if c, ok := nicknameCanon[name]; ok {
		return c
	}
	return name
}
